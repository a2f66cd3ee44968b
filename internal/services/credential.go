package services

import (
	"net/http"
	"time"

	"api/internal/credentials"
	apierrors "api/internal/errors"
	"api/internal/events"
	h "api/internal/helpers"
	"api/internal/messaging"
	m "api/internal/middlewares"
	"api/internal/models"
	"api/internal/otp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CredentialService lets operators inspect and revoke code credentials.
// Revoking is how support disables the email-code factor for a user mid
// incident without touching the user row.
type CredentialService struct {
	DB        *gorm.DB
	Store     credentials.IStore
	Publisher messaging.IPublisher
}

// credentialStatus is the admin view of a stored code. The code value itself
// never leaves the service.
type credentialStatus struct {
	Present    bool      `json:"present"`
	Freshness  string    `json:"freshness,omitempty"`
	IssuedAt   time.Time `json:"issued_at,omitzero"`
	TTLSeconds int       `json:"ttl_seconds,omitempty"`
}

func (s CredentialService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(m.RequireAdmin(s))

	r.Route("/{realm}/{userID}", func(r chi.Router) {
		r.Get("/", s.GetStatus)
		r.Delete("/", s.Remove)
	})

	return r
}

// RoleOf implements middlewares.RoleLookup.
func (s CredentialService) RoleOf(userID string) (models.Role, error) {
	var user models.User
	if err := s.DB.Select("role").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s CredentialService) GetStatus(w http.ResponseWriter, r *http.Request) {
	realm, userID, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	credential, err := s.Store.Get(realm, userID)
	if err != nil {
		zap.L().Error("Failed to read credential", zap.Error(err))
		h.RespondWithError(w, 503, []string{apierrors.ErrServiceUnavailable})
		return
	}

	if credential == nil {
		h.RespondWithJSON(w, http.StatusOK, credentialStatus{Present: false})
		return
	}

	h.RespondWithJSON(w, http.StatusOK, credentialStatus{
		Present:    true,
		Freshness:  otp.Evaluate(credential.IssuedAt, credential.TTLSeconds, time.Now()).String(),
		IssuedAt:   credential.IssuedAt,
		TTLSeconds: credential.TTLSeconds,
	})
}

func (s CredentialService) Remove(w http.ResponseWriter, r *http.Request) {
	realm, userID, ok := pathIdentity(w, r)
	if !ok {
		return
	}

	if err := s.Store.Remove(realm, userID); err != nil {
		zap.L().Error("Failed to remove credential", zap.Error(err))
		h.RespondWithError(w, 503, []string{apierrors.ErrServiceUnavailable})
		return
	}

	var user models.User
	if result := s.DB.Where("id = ?", userID).First(&user); result.RowsAffected > 0 {
		events.Trigger(s.Publisher, events.NewAuditEvent(events.ActionCredentialRemoved, &user, nil))
	}

	h.RespondWithJSON(w, http.StatusNoContent, nil)
}

func pathIdentity(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	realm := chi.URLParam(r, "realm")

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.RespondWithError(w, 400, []string{"INVALID_ID"})
		return "", uuid.UUID{}, false
	}

	return realm, userID, true
}
