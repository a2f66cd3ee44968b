package otp

import (
	"errors"
	"testing"
	"time"

	"api/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Inline Mocks ---

type MockStore struct {
	credential *models.Credential
	getErr     error
	putErr     error
	putCalls   []models.Credential
}

func (m *MockStore) Get(_ string, _ uuid.UUID) (*models.Credential, error) {
	return m.credential, m.getErr
}

func (m *MockStore) Put(credential models.Credential) (models.Credential, error) {
	if m.putErr != nil {
		return models.Credential{}, m.putErr
	}
	m.putCalls = append(m.putCalls, credential)
	m.credential = &credential
	return credential, nil
}

func (m *MockStore) Remove(_ string, _ uuid.UUID) error {
	m.credential = nil
	return nil
}

type MockNotifier struct {
	calls []string
	err   error
}

func (m *MockNotifier) NotifyFromTemplate(_ string, _ string, templateName string, _ any) error {
	m.calls = append(m.calls, templateName)
	return m.err
}

type MockAttempts struct {
	count      int
	increments int
	resets     int
}

func (m *MockAttempts) GetFailedAttempts(_ string, _ string) (int, error) { return m.count, nil }
func (m *MockAttempts) IncrementFailedAttempts(_ string, _ string, _ int) error {
	m.increments++
	m.count++
	return nil
}
func (m *MockAttempts) ResetFailedAttempts(_ string, _ string) error {
	m.resets = m.resets + 1
	m.count = 0
	return nil
}

// --- Helpers ---

func testUser() *models.User {
	return &models.User{
		ID:            uuid.New(),
		Realm:         "master",
		Email:         "jo@example.com",
		EmailVerified: true,
	}
}

func testConfig() models.AuthConfig {
	return models.AuthConfig{
		CodeTTL:           300,
		CodeLength:        8,
		MaxFailedAttempts: 5,
		LockoutSeconds:    900,
	}
}

func newTestManager(store *MockStore, notif *MockNotifier, attempts AttemptCounter) *Manager {
	m := NewManager(store, notif, attempts, testConfig())
	m.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

// --- Tests ---

func TestIssue(t *testing.T) {
	logger := zap.NewNop()

	t.Run("stores a fresh code and mails it", func(t *testing.T) {
		store := &MockStore{}
		notif := &MockNotifier{}
		m := newTestManager(store, notif, nil)

		credential, err := m.Issue(logger, testUser(), "login_code")
		require.NoError(t, err)

		assert.Len(t, credential.Value, 8)
		assert.Equal(t, models.CredentialTypeCode, credential.Type)
		assert.Equal(t, 300, credential.TTLSeconds)
		assert.Equal(t, m.Now(), credential.IssuedAt)
		assert.Equal(t, []string{"login_code"}, notif.calls)
	})

	t.Run("overwrites the previous code", func(t *testing.T) {
		user := testUser()
		store := &MockStore{credential: &models.Credential{
			Realm:  user.Realm,
			UserID: user.ID,
			Value:  "OLDCODE1",
		}}
		m := newTestManager(store, &MockNotifier{}, nil)

		credential, err := m.Issue(logger, user, "login_code")
		require.NoError(t, err)

		assert.NotEqual(t, "OLDCODE1", credential.Value)
		assert.Equal(t, credential.Value, store.credential.Value)
	})

	t.Run("mail failure does not fail the issue", func(t *testing.T) {
		store := &MockStore{}
		notif := &MockNotifier{err: errors.New("smtp down")}
		m := newTestManager(store, notif, nil)

		credential, err := m.Issue(logger, testUser(), "login_code")
		require.NoError(t, err)
		assert.NotEmpty(t, credential.Value)
		assert.NotNil(t, store.credential)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		store := &MockStore{putErr: errors.New("connection refused")}
		m := newTestManager(store, &MockNotifier{}, nil)

		_, err := m.Issue(logger, testUser(), "login_code")
		assert.Error(t, err)
	})

	t.Run("reissue lifts an existing lockout", func(t *testing.T) {
		user := testUser()
		store := &MockStore{}
		attempts := &MockAttempts{count: 5}
		m := newTestManager(store, &MockNotifier{}, attempts)

		credential, err := m.Issue(logger, user, "code_resent")
		require.NoError(t, err)
		assert.Equal(t, 1, attempts.resets)

		// The fresh code validates immediately; the attempts burned on the
		// replaced code do not carry over.
		status, err := m.Validate(logger, user, credential.Value)
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)
	})

	t.Run("storage failure leaves the counter alone", func(t *testing.T) {
		store := &MockStore{putErr: errors.New("connection refused")}
		attempts := &MockAttempts{count: 5}
		m := newTestManager(store, &MockNotifier{}, attempts)

		_, err := m.Issue(logger, testUser(), "login_code")
		assert.Error(t, err)
		assert.Equal(t, 0, attempts.resets)
	})
}

func TestValidate(t *testing.T) {
	logger := zap.NewNop()
	issued := time.Date(2025, 6, 1, 11, 58, 0, 0, time.UTC)

	activeCredential := func(user *models.User) *models.Credential {
		return &models.Credential{
			Realm:      user.Realm,
			UserID:     user.ID,
			Type:       models.CredentialTypeCode,
			Value:      "A1B2C3D4",
			IssuedAt:   issued,
			TTLSeconds: 300,
		}
	}

	t.Run("empty input short-circuits before any lookup", func(t *testing.T) {
		store := &MockStore{getErr: errors.New("should not be called")}
		m := newTestManager(store, &MockNotifier{}, nil)

		status, err := m.Validate(logger, testUser(), "")
		require.NoError(t, err)
		assert.Equal(t, StatusNoInput, status)
	})

	t.Run("no stored code", func(t *testing.T) {
		m := newTestManager(&MockStore{}, &MockNotifier{}, nil)

		status, err := m.Validate(logger, testUser(), "A1B2C3D4")
		require.NoError(t, err)
		assert.Equal(t, StatusNoActiveCode, status)
	})

	t.Run("expired code is never compared", func(t *testing.T) {
		user := testUser()
		credential := activeCredential(user)
		credential.IssuedAt = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
		m := newTestManager(&MockStore{credential: credential}, &MockNotifier{}, nil)

		// Correct value, but the code is past its lifetime.
		status, err := m.Validate(logger, user, "A1B2C3D4")
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, status)
	})

	t.Run("code at exactly its lifetime still validates", func(t *testing.T) {
		user := testUser()
		credential := activeCredential(user)
		m := newTestManager(&MockStore{credential: credential}, &MockNotifier{}, nil)
		m.Now = func() time.Time { return issued.Add(300 * time.Second) }

		status, err := m.Validate(logger, user, "A1B2C3D4")
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)
	})

	t.Run("wrong code records a failed attempt", func(t *testing.T) {
		user := testUser()
		attempts := &MockAttempts{}
		m := newTestManager(&MockStore{credential: activeCredential(user)}, &MockNotifier{}, attempts)

		status, err := m.Validate(logger, user, "WRONG123")
		require.NoError(t, err)
		assert.Equal(t, StatusInvalid, status)
		assert.Equal(t, 1, attempts.increments)
	})

	t.Run("comparison is case sensitive", func(t *testing.T) {
		user := testUser()
		m := newTestManager(&MockStore{credential: activeCredential(user)}, &MockNotifier{}, nil)

		status, err := m.Validate(logger, user, "a1b2c3d4")
		require.NoError(t, err)
		assert.Equal(t, StatusInvalid, status)
	})

	t.Run("valid code resets the attempt counter", func(t *testing.T) {
		user := testUser()
		attempts := &MockAttempts{count: 3}
		m := newTestManager(&MockStore{credential: activeCredential(user)}, &MockNotifier{}, attempts)

		status, err := m.Validate(logger, user, "A1B2C3D4")
		require.NoError(t, err)
		assert.Equal(t, StatusValid, status)
		assert.Equal(t, 1, attempts.resets)
	})

	t.Run("locked out after too many failures", func(t *testing.T) {
		user := testUser()
		attempts := &MockAttempts{count: 5}
		m := newTestManager(&MockStore{credential: activeCredential(user)}, &MockNotifier{}, attempts)

		status, err := m.Validate(logger, user, "A1B2C3D4")
		require.NoError(t, err)
		assert.Equal(t, StatusThrottled, status)
	})

	t.Run("storage failure is escalated", func(t *testing.T) {
		m := newTestManager(&MockStore{getErr: errors.New("connection refused")}, &MockNotifier{}, nil)

		_, err := m.Validate(logger, testUser(), "A1B2C3D4")
		assert.Error(t, err)
	})
}

func TestConfiguredFor(t *testing.T) {
	m := newTestManager(&MockStore{}, &MockNotifier{}, nil)

	user := testUser()
	assert.True(t, m.ConfiguredFor(user))

	user.EmailVerified = false
	assert.False(t, m.ConfiguredFor(user))
}
