package challenge

import (
	"api/internal/events"
	"api/internal/models"
	"api/internal/otp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignalKind is what the user did on the challenge page.
type SignalKind string

const (
	SignalNone   SignalKind = "none"
	SignalSubmit SignalKind = "submit"
	SignalResend SignalKind = "resend"
	SignalCancel SignalKind = "cancel"
)

// Signal carries one user action into the flow. Code is only meaningful for
// submits.
type Signal struct {
	Kind SignalKind
	Code string
}

// Notice texts shown on the challenge page.
const (
	noticeCodeResent      = "A new code has been sent to your email address."
	noticeCodeInvalid     = "Invalid code. Check your email and try again."
	noticeTooManyAttempts = "Too many failed attempts. Wait a moment before trying again."
)

// AuditFunc records one user action. Implementations must not block the flow.
type AuditFunc func(action string, user *models.User, challengeID uuid.UUID)

// Flow drives one email-code challenge from first render to a terminal state.
// It holds no per-challenge state itself; the caller persists the returned
// state and feeds it back on the next signal, so a flow survives across
// requests and instances.
type Flow struct {
	OTP   *otp.Manager
	Audit AuditFunc
}

func NewFlow(manager *otp.Manager, audit AuditFunc) *Flow {
	return &Flow{OTP: manager, Audit: audit}
}

// Begin issues the first code and puts the challenge in front of the user.
func (f *Flow) Begin(
	logger *zap.Logger,
	user *models.User,
	challengeID uuid.UUID,
) (models.ChallengeState, models.Notice, error) {
	if _, err := f.OTP.Issue(logger, user, "login_code"); err != nil {
		return models.ChallengeStateStart, models.Notice{}, err
	}

	f.audit(events.ActionCodeIssued, user, challengeID)

	return models.ChallengeStateAwaitingInput, models.Notice{Kind: models.NoticeNone}, nil
}

// Step advances the flow by one user action. Terminal states absorb every
// signal. Cancel wins over everything else and is always honored; the stored
// code is left alone since the challenge record itself is what gates a login.
func (f *Flow) Step(
	logger *zap.Logger,
	user *models.User,
	challengeID uuid.UUID,
	current models.ChallengeState,
	signal Signal,
) (models.ChallengeState, models.Notice, error) {
	if current == models.ChallengeStateSucceeded || current == models.ChallengeStateAborted {
		return current, models.Notice{Kind: models.NoticeNone}, nil
	}

	switch signal.Kind {
	case SignalCancel:
		f.audit(events.ActionChallengeAborted, user, challengeID)
		return models.ChallengeStateAborted, models.Notice{Kind: models.NoticeNone}, nil

	case SignalResend:
		if _, err := f.OTP.Issue(logger, user, "code_resent"); err != nil {
			return current, models.Notice{}, err
		}
		f.audit(events.ActionCodeResent, user, challengeID)
		return models.ChallengeStateAwaitingInput,
			models.Notice{Kind: models.NoticeInfo, Text: noticeCodeResent}, nil

	case SignalSubmit:
		return f.submit(logger, user, challengeID, signal.Code)

	default:
		return models.ChallengeStateAwaitingInput, models.Notice{Kind: models.NoticeNone}, nil
	}
}

func (f *Flow) submit(
	logger *zap.Logger,
	user *models.User,
	challengeID uuid.UUID,
	code string,
) (models.ChallengeState, models.Notice, error) {
	status, err := f.OTP.Validate(logger, user, code)
	if err != nil {
		return models.ChallengeStateAwaitingInput, models.Notice{}, err
	}

	switch status {
	case otp.StatusValid:
		f.audit(events.ActionChallengeSucceeded, user, challengeID)
		return models.ChallengeStateSucceeded, models.Notice{Kind: models.NoticeNone}, nil

	case otp.StatusNoInput:
		// An empty submit re-renders the form without consuming an attempt.
		return models.ChallengeStateAwaitingInput, models.Notice{Kind: models.NoticeNone}, nil

	case otp.StatusThrottled:
		return models.ChallengeStateAwaitingInput,
			models.Notice{Kind: models.NoticeError, Text: noticeTooManyAttempts}, nil

	case otp.StatusExpired, otp.StatusNoActiveCode:
		// The stored code is dead, either aged out or missing. Rather than
		// bouncing the user we quietly start over with a fresh code.
		if _, issueErr := f.OTP.Issue(logger, user, "code_resent"); issueErr != nil {
			return models.ChallengeStateAwaitingInput, models.Notice{}, issueErr
		}
		f.audit(events.ActionCodeResent, user, challengeID)
		return models.ChallengeStateAwaitingInput,
			models.Notice{Kind: models.NoticeInfo, Text: noticeCodeResent}, nil

	default:
		f.audit(events.ActionInvalidAttempt, user, challengeID)
		return models.ChallengeStateAwaitingInput,
			models.Notice{Kind: models.NoticeError, Text: noticeCodeInvalid}, nil
	}
}

func (f *Flow) audit(action string, user *models.User, challengeID uuid.UUID) {
	if f.Audit != nil {
		f.Audit(action, user, challengeID)
	}
}
