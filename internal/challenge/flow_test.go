package challenge

import (
	"testing"
	"time"

	"api/internal/events"
	"api/internal/models"
	"api/internal/otp"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Inline Mocks ---

type MockStore struct {
	credential *models.Credential
}

func (m *MockStore) Get(_ string, _ uuid.UUID) (*models.Credential, error) {
	return m.credential, nil
}

func (m *MockStore) Put(credential models.Credential) (models.Credential, error) {
	m.credential = &credential
	return credential, nil
}

func (m *MockStore) Remove(_ string, _ uuid.UUID) error {
	m.credential = nil
	return nil
}

type MockNotifier struct {
	templates []string
}

func (m *MockNotifier) NotifyFromTemplate(_ string, _ string, templateName string, _ any) error {
	m.templates = append(m.templates, templateName)
	return nil
}

type auditRecorder struct {
	actions []string
}

func (a *auditRecorder) record(action string, _ *models.User, _ uuid.UUID) {
	a.actions = append(a.actions, action)
}

// --- Helpers ---

type fixture struct {
	flow     *Flow
	store    *MockStore
	notifier *MockNotifier
	audit    *auditRecorder
	user     *models.User
	id       uuid.UUID
	logger   *zap.Logger
	now      *time.Time
}

func newFixture() *fixture {
	store := &MockStore{}
	notif := &MockNotifier{}
	audit := &auditRecorder{}

	manager := otp.NewManager(store, notif, nil, models.AuthConfig{
		CodeTTL:    300,
		CodeLength: 8,
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager.Now = func() time.Time { return now }

	f := &fixture{
		flow:     NewFlow(manager, audit.record),
		store:    store,
		notifier: notif,
		audit:    audit,
		user: &models.User{
			ID:            uuid.New(),
			Realm:         "master",
			Email:         "jo@example.com",
			EmailVerified: true,
		},
		id:     uuid.New(),
		logger: zap.NewNop(),
		now:    &now,
	}
	return f
}

func (f *fixture) begin(t *testing.T) models.ChallengeState {
	t.Helper()
	state, _, err := f.flow.Begin(f.logger, f.user, f.id)
	require.NoError(t, err)
	require.Equal(t, models.ChallengeStateAwaitingInput, state)
	return state
}

func (f *fixture) step(t *testing.T, state models.ChallengeState, signal Signal) (models.ChallengeState, models.Notice) {
	t.Helper()
	next, notice, err := f.flow.Step(f.logger, f.user, f.id, state, signal)
	require.NoError(t, err)
	return next, notice
}

// --- Tests ---

func TestBeginIssuesAndAwaitsInput(t *testing.T) {
	f := newFixture()

	state := f.begin(t)

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	require.NotNil(t, f.store.credential)
	assert.Len(t, f.store.credential.Value, 8)
	assert.Equal(t, []string{"login_code"}, f.notifier.templates)
	assert.Equal(t, []string{events.ActionCodeIssued}, f.audit.actions)
}

func TestSubmitCorrectCodeSucceeds(t *testing.T) {
	f := newFixture()
	state := f.begin(t)

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit, Code: f.store.credential.Value})

	assert.Equal(t, models.ChallengeStateSucceeded, state)
	assert.Equal(t, models.NoticeNone, notice.Kind)
	assert.Contains(t, f.audit.actions, events.ActionChallengeSucceeded)
}

func TestSubmitWrongCodeStaysOnForm(t *testing.T) {
	f := newFixture()
	state := f.begin(t)

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit, Code: "WRONG123"})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeError, notice.Kind)
	assert.Contains(t, f.audit.actions, events.ActionInvalidAttempt)

	// The code is still live: a correct retry succeeds.
	state, _ = f.step(t, state, Signal{Kind: SignalSubmit, Code: f.store.credential.Value})
	assert.Equal(t, models.ChallengeStateSucceeded, state)
}

func TestEmptySubmitConsumesNothing(t *testing.T) {
	f := newFixture()
	state := f.begin(t)
	stored := f.store.credential.Value

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeNone, notice.Kind)
	assert.Equal(t, stored, f.store.credential.Value)
	assert.NotContains(t, f.audit.actions, events.ActionInvalidAttempt)
}

func TestResendReplacesCode(t *testing.T) {
	f := newFixture()
	state := f.begin(t)
	first := f.store.credential.Value

	state, notice := f.step(t, state, Signal{Kind: SignalResend})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeInfo, notice.Kind)
	assert.NotEqual(t, first, f.store.credential.Value)
	assert.Equal(t, []string{"login_code", "code_resent"}, f.notifier.templates)
	assert.Contains(t, f.audit.actions, events.ActionCodeResent)

	// The old code died with the resend.
	state, notice = f.step(t, state, Signal{Kind: SignalSubmit, Code: first})
	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeError, notice.Kind)
}

func TestExpiredSubmitQuietlyReissues(t *testing.T) {
	f := newFixture()
	state := f.begin(t)
	expired := f.store.credential.Value

	// Jump past the code lifetime, then submit the now dead code.
	*f.now = f.now.Add(301 * time.Second)

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit, Code: expired})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeInfo, notice.Kind)
	assert.NotEqual(t, expired, f.store.credential.Value)
	assert.NotContains(t, f.audit.actions, events.ActionInvalidAttempt)

	// The replacement works.
	state, _ = f.step(t, state, Signal{Kind: SignalSubmit, Code: f.store.credential.Value})
	assert.Equal(t, models.ChallengeStateSucceeded, state)
}

func TestMissingCodeQuietlyReissues(t *testing.T) {
	f := newFixture()
	state := f.begin(t)
	f.store.credential = nil

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit, Code: "ANYTHING"})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeInfo, notice.Kind)
	assert.NotNil(t, f.store.credential)
}

func TestCancelAlwaysAborts(t *testing.T) {
	f := newFixture()
	state := f.begin(t)

	state, notice := f.step(t, state, Signal{Kind: SignalCancel})

	assert.Equal(t, models.ChallengeStateAborted, state)
	assert.Equal(t, models.NoticeNone, notice.Kind)
	assert.Contains(t, f.audit.actions, events.ActionChallengeAborted)

	// Cancel does not touch the stored code.
	assert.NotNil(t, f.store.credential)
}

func TestTerminalStatesAbsorbSignals(t *testing.T) {
	f := newFixture()
	f.begin(t)

	for _, terminal := range []models.ChallengeState{
		models.ChallengeStateSucceeded,
		models.ChallengeStateAborted,
	} {
		for _, signal := range []Signal{
			{Kind: SignalSubmit, Code: "A1B2C3D4"},
			{Kind: SignalResend},
			{Kind: SignalCancel},
			{Kind: SignalNone},
		} {
			state, notice := f.step(t, terminal, signal)
			assert.Equal(t, terminal, state)
			assert.Equal(t, models.NoticeNone, notice.Kind)
		}
	}
}

func TestThrottledSubmitShowsLockoutNotice(t *testing.T) {
	f := newFixture()
	state := f.begin(t)

	attempts := &lockedAttempts{}
	f.flow.OTP.Attempts = attempts
	f.flow.OTP.Config.MaxFailedAttempts = 5

	state, notice := f.step(t, state, Signal{Kind: SignalSubmit, Code: f.store.credential.Value})

	assert.Equal(t, models.ChallengeStateAwaitingInput, state)
	assert.Equal(t, models.NoticeError, notice.Kind)
}

type lockedAttempts struct{}

func (l *lockedAttempts) GetFailedAttempts(_ string, _ string) (int, error)       { return 10, nil }
func (l *lockedAttempts) IncrementFailedAttempts(_ string, _ string, _ int) error { return nil }
func (l *lockedAttempts) ResetFailedAttempts(_ string, _ string) error            { return nil }
