package events

import (
	"encoding/json"
	"time"

	"api/internal/messaging"
	"api/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit actions emitted by the challenge flow. The audit consumer turns these
// into searchable activity entries.
const (
	ActionCodeIssued         = "code_issued"
	ActionCodeResent         = "code_resent"
	ActionInvalidAttempt     = "invalid_code_attempt"
	ActionChallengeSucceeded = "challenge_succeeded"
	ActionChallengeAborted   = "challenge_aborted"
	ActionCredentialRemoved  = "credential_removed"
)

// AuditEvent is the wire payload published on the audit queue.
type AuditEvent struct {
	Action      string    `json:"action"`
	Realm       string    `json:"realm"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewAuditEvent builds the payload for one user action. challengeID may be nil
// for events outside a login flow, such as admin credential removal.
func NewAuditEvent(action string, user *models.User, challengeID *uuid.UUID) AuditEvent {
	event := AuditEvent{
		Action:    action,
		Realm:     user.Realm,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Timestamp: time.Now().UTC(),
	}
	if challengeID != nil {
		event.ChallengeID = challengeID.String()
	}
	return event
}

// Trigger publishes an audit event. Audit delivery is best-effort: a broker
// outage must never block a login, so failures are logged and swallowed.
func Trigger(publisher messaging.IPublisher, event AuditEvent) {
	if publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("Failed to marshal audit event", zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := publisher.Publish(msg); err != nil {
		zap.L().Error("Failed to publish audit event",
			zap.String("action", event.Action),
			zap.Error(err))
	}
}
