package apierrors

import "fmt"

// APIError carries the HTTP status and a stable machine-readable code that
// handlers serialize as-is to clients.
type APIError struct {
	Status int    `json:"-"`
	Code   string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Code)
}

func NewAPIError(status int, code string) *APIError {
	return &APIError{Status: status, Code: code}
}

// HTTP 400 Bad Request.
const (
	ErrMissingCode    = "MISSING_CODE"
	ErrInvalidRequest = "INVALID_REQUEST"
)

// HTTP 401 Unauthorized.
const (
	ErrInvalidCode      = "INVALID_CODE"
	ErrCodeExpired      = "CODE_EXPIRED"
	ErrNoActiveCode     = "NO_ACTIVE_CODE"
	ErrInvalidToken     = "INVALID_TOKEN"
	ErrChallengeExpired = "CHALLENGE_EXPIRED"
)

// HTTP 404 Not Found.
const (
	ErrChallengeNotFound  = "CHALLENGE_NOT_FOUND"
	ErrCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	ErrUserNotFound       = "USER_NOT_FOUND"
)

// HTTP 409 Conflict.
const (
	ErrChallengeFinished = "CHALLENGE_ALREADY_FINISHED"
)

// HTTP 429 Too Many Requests.
const (
	ErrTooManyAttempts = "TOO_MANY_ATTEMPTS"
	ErrResendRateLimit = "RESEND_RATE_LIMITED"
)

// HTTP 5xx.
const (
	ErrInternal           = "INTERNAL_SERVER_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
)
