package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("zero issue time is unknown", func(t *testing.T) {
		assert.Equal(t, FreshnessUnknown, Evaluate(time.Time{}, 300, issued))
	})

	t.Run("fresh within lifetime", func(t *testing.T) {
		assert.Equal(t, FreshnessFresh, Evaluate(issued, 300, issued.Add(299*time.Second)))
	})

	t.Run("still fresh at exactly the lifetime", func(t *testing.T) {
		assert.Equal(t, FreshnessFresh, Evaluate(issued, 300, issued.Add(300*time.Second)))
	})

	t.Run("expired one second past the lifetime", func(t *testing.T) {
		assert.Equal(t, FreshnessExpired, Evaluate(issued, 300, issued.Add(301*time.Second)))
	})

	t.Run("non-positive ttl falls back to default", func(t *testing.T) {
		assert.Equal(t, FreshnessFresh, Evaluate(issued, 0, issued.Add(300*time.Second)))
		assert.Equal(t, FreshnessExpired, Evaluate(issued, -1, issued.Add(301*time.Second)))
	})

	t.Run("clock skew before issue time is fresh", func(t *testing.T) {
		assert.Equal(t, FreshnessFresh, Evaluate(issued, 300, issued.Add(-10*time.Second)))
	})
}

func TestFreshnessString(t *testing.T) {
	assert.Equal(t, "fresh", FreshnessFresh.String())
	assert.Equal(t, "expired", FreshnessExpired.String())
	assert.Equal(t, "unknown", FreshnessUnknown.String())
}
