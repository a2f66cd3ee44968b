package models

import (
	"time"

	"github.com/google/uuid"
)

// CredentialTypeCode tags email one-time-code credential rows, keeping them
// apart from other credential kinds sharing the table.
const CredentialTypeCode = "code"

// Credential is the persisted OTP state for one user. At most one row of type
// "code" exists per (realm, user_id); the unique index backs the upsert in the
// credential store.
type Credential struct {
	ID         uuid.UUID `gorm:"type:uuid;primarykey;default:gen_random_uuid()"            json:"id"`
	Realm      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_cred_identity"  json:"realm"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cred_identity"          json:"user_id"`
	Type       string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_cred_identity"   json:"type"`
	Value      string    `gorm:"type:varchar(64);not null"                                 json:"-"`
	IssuedAt   time.Time `gorm:"not null"                                                  json:"issued_at"`
	TTLSeconds int       `gorm:"not null"                                                  json:"ttl_seconds"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChallengeState is the persisted position of a login challenge flow.
type ChallengeState string

const (
	ChallengeStateStart         ChallengeState = "start"
	ChallengeStateAwaitingInput ChallengeState = "awaiting_input"
	ChallengeStateSucceeded     ChallengeState = "succeeded"
	ChallengeStateAborted       ChallengeState = "aborted"
)

// LoginChallenge tracks one in-flight email-code challenge. One browser tab
// drives one flow; the row carries the state machine position between requests.
type LoginChallenge struct {
	ID        uuid.UUID      `gorm:"type:uuid;primarykey;default:gen_random_uuid()" json:"id"`
	Realm     string         `gorm:"type:varchar(255);not null"                     json:"realm"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null"                             json:"user_id"`
	State     ChallengeState `gorm:"type:varchar(32);not null"                      json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
