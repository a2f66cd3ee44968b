package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"api/internal/cache"
	"api/internal/helpers"
	"api/internal/models"

	"go.uber.org/zap"
)

const requestsPerMinute = 120

// RateLimit throttles per caller using the cache. Authenticated requests are
// keyed by user ID, anonymous ones by client IP. With no cache configured the
// middleware is a passthrough.
func RateLimit(c cache.ICache, trustedProxies []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := clientIdentifier(r, trustedProxies)

			retryAfter, err := c.GetRateLimit(identifier, requestsPerMinute)
			if err != nil {
				zap.L().Warn("Rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				helpers.RespondWithError(w, 429, []string{"TOO_MANY_REQUESTS"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIdentifier(r *http.Request, trustedProxies []string) string {
	if claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims); ok {
		return claims.UserID.String()
	}
	return clientIP(r, trustedProxies)
}

// clientIP only honors X-Forwarded-For when the direct peer is a trusted
// proxy, so callers cannot spoof their way past the limiter.
func clientIP(r *http.Request, trustedProxies []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	trusted := false
	for _, proxy := range trustedProxies {
		if proxy == remoteIP {
			trusted = true
			break
		}
	}

	if trusted {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			return strings.TrimSpace(parts[0])
		}
	}

	return remoteIP
}
