package configuration

const AppName = "stepgate"

// JWT Audience constants for token type separation.
const (
	AudienceChallengeToken = "auth:email-code"
)

const (
	CacheMaxAppIdentityLifetime = 60
	CacheAppIdentityKey         = "app:identity"
	CacheAppRateLimitKey        = "app:ratelimit:%s"
	CacheAppWorkerLockKey       = "app:worker:lock:%s" //nolint:gosec // not a credential
	CacheAppWorkerLockTTL       = 60
	CacheAppWorkerLockRefresh   = 55
	CacheCredentialViewKey      = "cred:code:%s:%s"
	CacheFailedAttemptsKey      = "code:attempts:%s:%s"
)

const (
	EventsAudit = "audit"
)

// Event broker providers.
const (
	ProviderJetstream = "jetstream"
	ProviderMemory    = "memory"
)

// Email one-time-code defaults. All of these are overridable through the
// auth section of the configuration.
const (
	DefaultCodeTTLSeconds       = 300
	DefaultCodeLength           = 8
	DefaultMaxFailedAttempts    = 5
	DefaultLockoutSeconds       = 900
	DefaultChallengeTokenExpiry = 5
	DefaultResendPerMinute      = 3
)

// CodeCharset is the alphabet codes are drawn from. Uppercase alphanumerics:
// unambiguous to read out of an email and case-stable across mail clients.
const CodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var ArrayConfigFields = []string{
	"app.trusted_proxies",
	"app.allowed_origins",
	"cache.redis.hosts",
	"cache.valkey.hosts",
}

var ConfigFileSearchPaths = []string{
	"./config.yaml",
	"templates/config.yaml",
}
