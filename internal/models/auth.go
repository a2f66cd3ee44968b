package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type UserClaimKey struct{}

// UserClaims are the claims carried by the restricted challenge token. The
// token only grants access to the challenge endpoints for its own flow.
type UserClaims struct {
	Email       string     `json:"email"`
	UserID      uuid.UUID  `json:"user_id"`
	Realm       string     `json:"realm"`
	Aud         string     `json:"aud_type"`
	Issuer      string     `json:"iss_name"`
	ChallengeID *uuid.UUID `json:"challenge_id,omitempty"`
	jwt.RegisteredClaims
}

// ChallengeStartBody begins an email-code challenge for a user mid-login.
// Realm defaults to the configured realm when omitted.
type ChallengeStartBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Realm string `json:"realm" validate:"omitempty,max=255"`
}

// ChallengeSubmitBody carries the code the user typed back. The field is
// optional on purpose: an empty submit re-renders the form without consuming
// an attempt.
type ChallengeSubmitBody struct {
	Code string `json:"code" validate:"omitempty,max=64"`
}

type NoticeKind string

const (
	NoticeNone  NoticeKind = "none"
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is the message shown on the rendered challenge page.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// ChallengeView is the rendered challenge the orchestrator shows the user.
type ChallengeView struct {
	ChallengeID uuid.UUID      `json:"challenge_id"`
	State       ChallengeState `json:"state"`
	Notice      Notice         `json:"notice"`
}

// ChallengeStartResponse pairs the first rendered view with the restricted
// token the client must present on submit/resend/cancel.
type ChallengeStartResponse struct {
	ChallengeToken string        `json:"challenge_token,omitempty"`
	View           ChallengeView `json:"view"`
}
