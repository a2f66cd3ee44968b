package core

import (
	"api/internal/models"
	"api/internal/notifier"
)

// NewNotifier picks the delivery channel for one-time-code emails. A nil
// return means notifications are disabled; codes are then only reachable
// through the credential store.
func NewNotifier(config models.NotifierConfiguration) notifier.INotifier {
	switch config.Type {
	case "smtp":
		return notifier.NewSMTPNotifier(*config.SMTP)
	case "filesystem":
		return notifier.NewFilesystemNotifier(*config.Filesystem)
	default:
		return nil
	}
}
