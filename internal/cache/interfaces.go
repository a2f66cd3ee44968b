package cache

type ICache interface {
	RegisterPlatform(id string) error
	DeleteInactivePlatform() error
	StartIdentityTicker(id string)

	GetRateLimit(userIdentifier string, requestsPerMinute int) (int, error)

	// GetCredentialView returns the cached credential payload for a user, or
	// ok=false on a miss. The payload is an opaque JSON blob owned by the
	// credential store.
	GetCredentialView(realm string, userID string) (string, bool, error)
	// SetCredentialView caches a credential payload with the given TTL.
	SetCredentialView(realm string, userID string, payload string, ttlSeconds int) error
	// DeleteCredentialView evicts the cached credential payload. Called after
	// every write to the backing store so readers never see a stale value.
	DeleteCredentialView(realm string, userID string) error

	// GetFailedAttempts returns the current number of failed code attempts for a user.
	GetFailedAttempts(realm string, userID string) (int, error)
	// IncrementFailedAttempts increments failed code attempts and refreshes the lockout TTL.
	IncrementFailedAttempts(realm string, userID string, lockoutSeconds int) error
	// ResetFailedAttempts clears the failed attempts counter (called on successful validation).
	ResetFailedAttempts(realm string, userID string) error

	TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error)
	RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error)

	Close() error
}
