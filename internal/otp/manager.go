package otp

import (
	"strconv"
	"time"

	"api/internal/credentials"
	"api/internal/helpers"
	"api/internal/models"
	"api/internal/notifier"

	"go.uber.org/zap"
)

// Status is the outcome of checking a submitted code.
type Status string

const (
	StatusNoInput      Status = "no_input"
	StatusThrottled    Status = "throttled"
	StatusNoActiveCode Status = "no_active_code"
	StatusExpired      Status = "expired"
	StatusInvalid      Status = "invalid"
	StatusValid        Status = "valid"
)

// Manager owns the email one-time-code factor: issuing codes, mailing them,
// and checking submissions. It is the only writer of code credentials.
type Manager struct {
	Store    credentials.IStore
	Notifier notifier.INotifier
	Config   models.AuthConfig
	Attempts AttemptCounter
	Now      func() time.Time
}

// AttemptCounter throttles failed submissions. A nil counter disables
// throttling entirely.
type AttemptCounter interface {
	GetFailedAttempts(realm string, userID string) (int, error)
	IncrementFailedAttempts(realm string, userID string, lockoutSeconds int) error
	ResetFailedAttempts(realm string, userID string) error
}

func NewManager(
	store credentials.IStore,
	notif notifier.INotifier,
	attempts AttemptCounter,
	config models.AuthConfig,
) *Manager {
	return &Manager{
		Store:    store,
		Notifier: notif,
		Attempts: attempts,
		Config:   config,
		Now:      time.Now,
	}
}

// ConfiguredFor reports whether the factor can run for this user. Without a
// verified mailbox there is nowhere trustworthy to send a code.
func (m *Manager) ConfiguredFor(user *models.User) bool {
	return user.EmailVerified
}

// Issue generates a fresh code for the user and mails it. Whatever code
// existed before is overwritten, so issuing is also how stale records get
// replaced. The failed-attempt counter is reset along with the code: the
// attempts spent guessing a now-dead value must not lock the user out of the
// replacement. Mail delivery failure is logged but not returned: the code is
// live in the store and the user can ask for a resend.
func (m *Manager) Issue(logger *zap.Logger, user *models.User, templateName string) (models.Credential, error) {
	code, err := helpers.GenerateCode(m.Config.CodeLength)
	if err != nil {
		return models.Credential{}, err
	}

	ttl := m.Config.CodeTTL

	credential, err := m.Store.Put(models.Credential{
		Realm:      user.Realm,
		UserID:     user.ID,
		Type:       models.CredentialTypeCode,
		Value:      code,
		IssuedAt:   m.Now(),
		TTLSeconds: ttl,
	})
	if err != nil {
		return models.Credential{}, err
	}

	m.clearFailures(logger, user)

	if notifyErr := m.Notifier.NotifyFromTemplate(
		user.Email,
		"Your sign-in code",
		templateName,
		map[string]string{
			"Code":       code,
			"TTLMinutes": formatMinutes(ttl),
		},
	); notifyErr != nil {
		logger.Warn("Failed to send one-time code email",
			zap.String("user_id", user.ID.String()),
			zap.Error(notifyErr))
	}

	return credential, nil
}

// Validate checks a submitted code against the stored one. Expired codes are
// never compared: the caller learns StatusExpired and decides what to do with
// the stale record. Only storage failures produce a non-nil error.
func (m *Manager) Validate(logger *zap.Logger, user *models.User, input string) (Status, error) {
	if input == "" {
		return StatusNoInput, nil
	}

	if m.Attempts != nil && m.Config.MaxFailedAttempts > 0 {
		count, err := m.Attempts.GetFailedAttempts(user.Realm, user.ID.String())
		if err != nil {
			logger.Warn("Failed to read attempt counter", zap.Error(err))
		} else if count >= m.Config.MaxFailedAttempts {
			return StatusThrottled, nil
		}
	}

	credential, err := m.Store.Get(user.Realm, user.ID)
	if err != nil {
		return "", err
	}
	if credential == nil {
		return StatusNoActiveCode, nil
	}

	if Evaluate(credential.IssuedAt, credential.TTLSeconds, m.Now()) == FreshnessExpired {
		return StatusExpired, nil
	}

	if !helpers.SecureCompare(input, credential.Value) {
		m.recordFailure(logger, user)
		return StatusInvalid, nil
	}

	m.clearFailures(logger, user)

	return StatusValid, nil
}

func (m *Manager) recordFailure(logger *zap.Logger, user *models.User) {
	if m.Attempts == nil {
		return
	}
	if err := m.Attempts.IncrementFailedAttempts(user.Realm, user.ID.String(), m.Config.LockoutSeconds); err != nil {
		logger.Warn("Failed to record failed attempt", zap.Error(err))
	}
}

func (m *Manager) clearFailures(logger *zap.Logger, user *models.User) {
	if m.Attempts == nil {
		return
	}
	if err := m.Attempts.ResetFailedAttempts(user.Realm, user.ID.String()); err != nil {
		logger.Warn("Failed to reset attempt counter", zap.Error(err))
	}
}

func formatMinutes(ttlSeconds int) string {
	minutes := ttlSeconds / 60
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes)
}
