package workers

import (
	"encoding/json"
	"strconv"

	"api/internal/activity"
	"api/internal/events"
	"api/internal/models"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// AuditConsumer drains the audit queue into the activity backend. Messages
// are acked even when indexing fails: audit is best-effort and a poison
// message must not wedge the queue.
type AuditConsumer struct {
	ActivityLogger activity.IActivityLogger
}

func (w *AuditConsumer) Run(messages <-chan *message.Message) {
	zap.L().Info("Started audit consumer")

	for msg := range messages {
		w.handle(msg)
		msg.Ack()
	}

	zap.L().Info("Audit consumer stopped")
}

func (w *AuditConsumer) handle(msg *message.Message) {
	var event events.AuditEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		zap.L().Error("Dropping unparseable audit event", zap.Error(err))
		return
	}

	entry := models.Activity{
		Message: auditMessage(event.Action),
		Filter: map[string]string{
			"action":       event.Action,
			"realm":        event.Realm,
			"user_id":      event.UserID,
			"email":        event.Email,
			"challenge_id": event.ChallengeID,
			"timestamp":    strconv.FormatInt(event.Timestamp.UnixNano(), 10),
		},
	}

	if err := w.ActivityLogger.Send(entry); err != nil {
		zap.L().Error("Failed to index audit event",
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

func auditMessage(action string) string {
	switch action {
	case events.ActionCodeIssued:
		return "Issued sign-in code"
	case events.ActionCodeResent:
		return "Resent sign-in code"
	case events.ActionInvalidAttempt:
		return "Rejected invalid sign-in code"
	case events.ActionChallengeSucceeded:
		return "Email code challenge succeeded"
	case events.ActionChallengeAborted:
		return "Email code challenge aborted"
	case events.ActionCredentialRemoved:
		return "Removed code credential"
	default:
		return action
	}
}
