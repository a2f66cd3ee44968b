package services

import (
	"net/http"
	"strconv"

	"api/internal/activity"
	apierrors "api/internal/errors"
	h "api/internal/helpers"
	m "api/internal/middlewares"
	"api/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityService exposes the audit trail to operators: free search over the
// indexed entries plus a per-day histogram for dashboards.
type ActivityService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s ActivityService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(m.RequireAdmin(s))

	r.Get("/", s.Search)
	r.Get("/stats", s.Stats)

	return r
}

// RoleOf implements middlewares.RoleLookup.
func (s ActivityService) RoleOf(userID string) (models.Role, error) {
	var user models.User
	if err := s.DB.Select("role").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}

// Search filters by any indexed field, e.g. ?action=code_resent&realm=master.
// Repeating a parameter ORs its values.
func (s ActivityService) Search(w http.ResponseWriter, r *http.Request) {
	criteria := map[string][]string{}
	for key, values := range r.URL.Query() {
		if isSearchableField(key) {
			criteria[key] = values
		}
	}

	results, err := s.ActivityLogger.Search(criteria)
	if err != nil {
		zap.L().Error("Activity search failed", zap.Error(err))
		h.RespondWithError(w, 503, []string{apierrors.ErrServiceUnavailable})
		return
	}

	if results == nil {
		results = []map[string]any{}
	}

	h.RespondWithJSON(w, http.StatusOK, results)
}

func (s ActivityService) Stats(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			h.RespondWithError(w, 400, []string{"INVALID_REQUEST"})
			return
		}
		days = parsed
	}

	criteria := map[string][]string{}
	for key, values := range r.URL.Query() {
		if isSearchableField(key) {
			criteria[key] = values
		}
	}

	points, err := s.ActivityLogger.CountByDay(criteria, days)
	if err != nil {
		zap.L().Error("Activity stats failed", zap.Error(err))
		h.RespondWithError(w, 503, []string{apierrors.ErrServiceUnavailable})
		return
	}

	if points == nil {
		points = []models.TimeSeriesPoint{}
	}

	h.RespondWithJSON(w, http.StatusOK, points)
}

func isSearchableField(key string) bool {
	switch key {
	case "action", "realm", "user_id", "email", "challenge_id":
		return true
	default:
		return false
	}
}
