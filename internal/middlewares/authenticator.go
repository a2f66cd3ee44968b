package middlewares

import (
	"context"
	"net/http"

	"api/internal/configuration"
	"api/internal/helpers"
	"api/internal/models"
)

// Authenticate parses the bearer token and stores the claims in the request
// context. Routes that accept anonymous traffic are mounted outside this
// middleware.
func Authenticate(jwtSecret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			accessToken := r.Header.Get("Authorization")
			userClaims, err := helpers.ParseToken(jwtSecret, accessToken, true)
			if err != nil {
				helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}

			ctx := context.WithValue(r.Context(), models.UserClaimKey{}, userClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// ChallengeAudience rejects tokens minted for anything but the email-code
// challenge flow. Applied after Authenticate on the challenge routes so a
// stolen full access token cannot drive someone else's challenge.
func ChallengeAudience(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
		if !ok {
			helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
			return
		}

		if claims.Aud != configuration.AudienceChallengeToken || claims.ChallengeID == nil {
			helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates the credential management routes.
func RequireAdmin(db RoleLookup) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				helpers.RespondWithError(w, 401, []string{"UNAUTHORIZED"})
				return
			}

			role, err := db.RoleOf(claims.UserID.String())
			if err != nil || role != models.RoleAdmin {
				helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RoleLookup resolves the current role of a user. Roles are read from storage
// on every call so a demoted admin loses access without waiting for token
// expiry.
type RoleLookup interface {
	RoleOf(userID string) (models.Role, error)
}
