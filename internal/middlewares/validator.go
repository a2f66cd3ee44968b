package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"api/internal/helpers"

	"github.com/go-playground/validator/v10"
)

// BodyKey carries the decoded and validated request body in the context.
type BodyKey struct{}

var validate *validator.Validate

func InitValidator() {
	validate = validator.New()
}

// Validate decodes the JSON body into T, runs struct validation, and stashes
// the result for the handler. Requests that fail either step never reach the
// handler.
func Validate[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body T

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			helpers.RespondWithError(w, 400, []string{"INVALID_REQUEST"})
			return
		}

		if err := validate.Struct(body); err != nil {
			var fields []string
			var validationErrors validator.ValidationErrors
			if errors.As(err, &validationErrors) {
				for _, fieldError := range validationErrors {
					fields = append(fields, "INVALID_FIELD_"+fieldError.Field())
				}
			}
			if len(fields) == 0 {
				fields = []string{"INVALID_REQUEST"}
			}
			helpers.RespondWithError(w, 400, fields)
			return
		}

		ctx := context.WithValue(r.Context(), BodyKey{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
