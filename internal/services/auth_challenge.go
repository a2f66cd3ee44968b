package services

import (
	"errors"

	"api/internal/cache"
	"api/internal/challenge"
	"api/internal/credentials"
	apierrors "api/internal/errors"
	"api/internal/events"
	"api/internal/handlers"
	h "api/internal/helpers"
	"api/internal/messaging"
	m "api/internal/middlewares"
	"api/internal/models"
	"api/internal/notifier"
	"api/internal/otp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeService exposes the email-code challenge flow over HTTP. One
// challenge row in the database is one running flow; every request loads the
// row, advances the state machine, and writes the new position back.
type ChallengeService struct {
	DB         *gorm.DB
	Cache      cache.ICache
	AuthConfig models.AuthConfig
	Publisher  messaging.IPublisher
	Notifier   notifier.INotifier
	Flow       *challenge.Flow
}

func NewChallengeService(
	db *gorm.DB,
	c cache.ICache,
	authConfig models.AuthConfig,
	publisher messaging.IPublisher,
	notify notifier.INotifier,
	store credentials.IStore,
) ChallengeService {
	var attempts otp.AttemptCounter
	if c != nil {
		attempts = c
	}

	manager := otp.NewManager(store, notify, attempts, authConfig)

	service := ChallengeService{
		DB:         db,
		Cache:      c,
		AuthConfig: authConfig,
		Publisher:  publisher,
		Notifier:   notify,
	}
	service.Flow = challenge.NewFlow(manager, service.audit)

	return service
}

func (s ChallengeService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.Validate[models.ChallengeStartBody]).
		Post("/", handlers.CreateHandler(s.Start))

	r.Route("/{id0}", func(r chi.Router) {
		r.Use(m.Authenticate(s.AuthConfig.JWTSecret))
		r.Use(m.ChallengeAudience)

		r.With(m.Validate[models.ChallengeSubmitBody]).
			Post("/submit", handlers.CreateHandler(s.Submit))
		r.Post("/resend", handlers.GetOneHandler(s.Resend))
		r.Post("/cancel", handlers.GetOneHandler(s.Cancel))
	})

	return r
}

// Start opens a challenge for the given email and sends the first code. The
// response is shaped identically whether or not the account exists, so the
// endpoint cannot be used to enumerate registered addresses.
func (s ChallengeService) Start(
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.ChallengeStartBody,
) (models.ChallengeStartResponse, error) {
	realm := body.Realm
	if realm == "" {
		realm = s.AuthConfig.DefaultRealm
	}

	var user models.User
	result := s.DB.Where("realm = ? AND email = ?", realm, body.Email).First(&user)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		logger.Error("Failed to look up user", zap.Error(result.Error))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(503, apierrors.ErrServiceUnavailable)
	}

	if result.RowsAffected == 0 || !user.EmailVerified {
		// Decoy response. The token is signed for a user that does not
		// exist, so later signals fall through to the same generic notice a
		// wrong code produces.
		return s.decoyResponse(logger, realm, body.Email)
	}

	loginChallenge := models.LoginChallenge{
		Realm:  realm,
		UserID: user.ID,
		State:  models.ChallengeStateStart,
	}
	if err := s.DB.Create(&loginChallenge).Error; err != nil {
		logger.Error("Failed to create challenge", zap.Error(err))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(503, apierrors.ErrServiceUnavailable)
	}

	state, notice, err := s.Flow.Begin(logger, &user, loginChallenge.ID)
	if err != nil {
		logger.Error("Failed to begin challenge", zap.Error(err))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(503, apierrors.ErrServiceUnavailable)
	}

	if err := s.persistState(loginChallenge.ID, state); err != nil {
		logger.Error("Failed to persist challenge state", zap.Error(err))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(503, apierrors.ErrServiceUnavailable)
	}

	token, err := h.NewChallengeToken(
		s.AuthConfig.JWTSecret,
		&user,
		loginChallenge.ID,
		s.AuthConfig.ChallengeTokenExpiry,
	)
	if err != nil {
		logger.Error("Failed to mint challenge token", zap.Error(err))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(500, apierrors.ErrInternal)
	}

	return models.ChallengeStartResponse{
		ChallengeToken: token,
		View: models.ChallengeView{
			ChallengeID: loginChallenge.ID,
			State:       state,
			Notice:      notice,
		},
	}, nil
}

func (s ChallengeService) Submit(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.ChallengeSubmitBody,
) (models.ChallengeView, error) {
	return s.advance(logger, claims, ids, challenge.Signal{
		Kind: challenge.SignalSubmit,
		Code: body.Code,
	})
}

// Resend is throttled per challenge, not per caller: every resend sends a
// real email, so the budget protects the mailbox owner from being spammed by
// whoever holds the challenge token.
func (s ChallengeService) Resend(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) (models.ChallengeView, error) {
	if s.Cache != nil && s.AuthConfig.ResendPerMinute > 0 && len(ids) > 0 {
		retryAfter, err := s.Cache.GetRateLimit("resend:"+ids[0].String(), s.AuthConfig.ResendPerMinute)
		if err != nil {
			logger.Warn("Resend throttle check failed", zap.Error(err))
		} else if retryAfter > 0 {
			return models.ChallengeView{}, apierrors.NewAPIError(429, apierrors.ErrResendRateLimit)
		}
	}

	return s.advance(logger, claims, ids, challenge.Signal{Kind: challenge.SignalResend})
}

func (s ChallengeService) Cancel(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) (models.ChallengeView, error) {
	return s.advance(logger, claims, ids, challenge.Signal{Kind: challenge.SignalCancel})
}

// advance applies one signal to the challenge named in the URL. The row is
// locked for the duration of the step so two tabs racing on the same
// challenge serialize instead of double-advancing.
func (s ChallengeService) advance(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	signal challenge.Signal,
) (models.ChallengeView, error) {
	challengeID := ids[0]

	if claims.ChallengeID == nil || *claims.ChallengeID != challengeID {
		return models.ChallengeView{}, apierrors.NewAPIError(403, "FORBIDDEN")
	}

	var view models.ChallengeView

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var loginChallenge models.LoginChallenge
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("User").
			Where("id = ?", challengeID).
			First(&loginChallenge)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) || loginChallenge.User == nil {
			// Unknown challenge, including decoy tokens. Answer exactly like
			// a wrong code so enumeration attempts stay blind.
			view = models.ChallengeView{
				ChallengeID: challengeID,
				State:       models.ChallengeStateAwaitingInput,
				Notice: models.Notice{
					Kind: models.NoticeError,
					Text: "Invalid code. Check your email and try again.",
				},
			}
			return nil
		}
		if result.Error != nil {
			return result.Error
		}

		state, notice, stepErr := s.Flow.Step(
			logger,
			loginChallenge.User,
			loginChallenge.ID,
			loginChallenge.State,
			signal,
		)
		if stepErr != nil {
			return stepErr
		}

		if state != loginChallenge.State {
			if updateErr := tx.Model(&models.LoginChallenge{}).
				Where("id = ?", loginChallenge.ID).
				Update("state", state).Error; updateErr != nil {
				return updateErr
			}
		}

		view = models.ChallengeView{
			ChallengeID: loginChallenge.ID,
			State:       state,
			Notice:      notice,
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to advance challenge", zap.Error(err))
		return models.ChallengeView{}, apierrors.NewAPIError(503, apierrors.ErrServiceUnavailable)
	}

	return view, nil
}

func (s ChallengeService) decoyResponse(
	logger *zap.Logger,
	realm string,
	email string,
) (models.ChallengeStartResponse, error) {
	decoyID := uuid.New()
	decoyUser := models.User{
		ID:    uuid.New(),
		Realm: realm,
		Email: email,
	}

	token, err := h.NewChallengeToken(
		s.AuthConfig.JWTSecret,
		&decoyUser,
		decoyID,
		s.AuthConfig.ChallengeTokenExpiry,
	)
	if err != nil {
		logger.Error("Failed to mint challenge token", zap.Error(err))
		return models.ChallengeStartResponse{}, apierrors.NewAPIError(500, apierrors.ErrInternal)
	}

	return models.ChallengeStartResponse{
		ChallengeToken: token,
		View: models.ChallengeView{
			ChallengeID: decoyID,
			State:       models.ChallengeStateAwaitingInput,
			Notice:      models.Notice{Kind: models.NoticeNone},
		},
	}, nil
}

func (s ChallengeService) persistState(challengeID uuid.UUID, state models.ChallengeState) error {
	return s.DB.Model(&models.LoginChallenge{}).
		Where("id = ?", challengeID).
		Update("state", state).Error
}

func (s ChallengeService) audit(action string, user *models.User, challengeID uuid.UUID) {
	events.Trigger(s.Publisher, events.NewAuditEvent(action, user, &challengeID))
}
