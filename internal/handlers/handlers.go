package handlers

import (
	"errors"
	"net/http"

	apierrors "api/internal/errors"
	"api/internal/helpers"
	"api/internal/middlewares"
	"api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The wrappers below adapt typed service methods to http.HandlerFunc. They
// pull claims and URL UUIDs out of the request, dispatch, and translate the
// returned error into a response, so services never touch the ResponseWriter.

// GetOneHandler wraps a read returning a single result.
func GetOneHandler[R any](fn func(*zap.Logger, models.UserClaims, uuid.UUIDs) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zap.L()

		claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		result, err := fn(logger, claims, ids)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		helpers.RespondWithJSON(w, http.StatusOK, result)
	}
}

// CreateHandler wraps a write with a validated body returning a result.
func CreateHandler[B any, R any](
	fn func(*zap.Logger, models.UserClaims, uuid.UUIDs, B) (R, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zap.L()

		claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(middlewares.BodyKey{}).(B)
		if !ok {
			helpers.RespondWithError(w, 400, []string{"INVALID_REQUEST"})
			return
		}

		result, err := fn(logger, claims, ids, body)
		if err != nil {
			respondError(w, logger, err)
			return
		}

		helpers.RespondWithJSON(w, http.StatusCreated, result)
	}
}

// BodyHandler wraps a write with a validated body and no response payload.
func BodyHandler[B any](
	fn func(*zap.Logger, models.UserClaims, uuid.UUIDs, B) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zap.L()

		claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(middlewares.BodyKey{}).(B)
		if !ok {
			helpers.RespondWithError(w, 400, []string{"INVALID_REQUEST"})
			return
		}

		if err := fn(logger, claims, ids, body); err != nil {
			respondError(w, logger, err)
			return
		}

		helpers.RespondWithJSON(w, http.StatusNoContent, nil)
	}
}

// DeleteHandler wraps a delete with no body and no response payload.
func DeleteHandler(fn func(*zap.Logger, models.UserClaims, uuid.UUIDs) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zap.L()

		claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		if err := fn(logger, claims, ids); err != nil {
			respondError(w, logger, err)
			return
		}

		helpers.RespondWithJSON(w, http.StatusNoContent, nil)
	}
}

func requestContext(w http.ResponseWriter, r *http.Request) (models.UserClaims, uuid.UUIDs, bool) {
	claims, _ := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)

	var ids uuid.UUIDs
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		for _, value := range routeCtx.URLParams.Values {
			if value == "" {
				continue
			}
			id, err := uuid.Parse(value)
			if err != nil {
				helpers.RespondWithError(w, 400, []string{"INVALID_ID"})
				return models.UserClaims{}, nil, false
			}
			ids = append(ids, id)
		}
	}

	return claims, ids, true
}

func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		helpers.RespondWithError(w, apiErr.Status, []string{apiErr.Code})
		return
	}

	logger.Error("Request failed", zap.Error(err))
	helpers.RespondWithError(w, 500, []string{apierrors.ErrInternal})
}
