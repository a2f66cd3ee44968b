package otp

import (
	"time"

	"api/internal/configuration"
)

// Freshness is the answer the expiry policy gives about a stored code.
// Unknown means the record carries no usable issue timestamp, which callers
// treat as "still alive" rather than guessing an age.
type Freshness int

const (
	FreshnessUnknown Freshness = iota
	FreshnessFresh
	FreshnessExpired
)

func (f Freshness) String() string {
	switch f {
	case FreshnessFresh:
		return "fresh"
	case FreshnessExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Evaluate classifies a code issued at issuedAt against its lifetime.
// A code is expired only when its age strictly exceeds the TTL, so a code
// checked at exactly ttlSeconds old is still fresh. Non-positive TTLs fall
// back to the default lifetime.
func Evaluate(issuedAt time.Time, ttlSeconds int, now time.Time) Freshness {
	if issuedAt.IsZero() {
		return FreshnessUnknown
	}

	if ttlSeconds <= 0 {
		ttlSeconds = configuration.DefaultCodeTTLSeconds
	}

	if now.Sub(issuedAt) > time.Duration(ttlSeconds)*time.Second {
		return FreshnessExpired
	}
	return FreshnessFresh
}
