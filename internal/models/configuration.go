package models

type Configuration struct {
	App      AppConfiguration      `mapstructure:"app"      validate:"required"`
	Database DatabaseConfiguration `mapstructure:"database" validate:"required"`
	Auth     AuthConfiguration     `mapstructure:"auth"     validate:"required"`
	Cache    CacheConfiguration    `mapstructure:"cache"`
	Events   EventsConfiguration   `mapstructure:"events"   validate:"required"`
	Notifier NotifierConfiguration `mapstructure:"notifier" validate:"required"`
	Activity ActivityConfiguration `mapstructure:"activity" validate:"required"`
}

type AppConfiguration struct {
	Profile        string               `mapstructure:"profile"         validate:"oneof=default api worker"`
	AdminEmail     string               `mapstructure:"admin_email"     validate:"required,email"`
	AdminPassword  string               `mapstructure:"admin_password"  validate:"required"`
	APIURL         string               `mapstructure:"api_url"         validate:"required"`
	AllowedOrigins []string             `mapstructure:"allowed_origins" validate:"required"`
	LogLevel       string               `mapstructure:"log_level"       validate:"oneof=debug info warn error fatal panic"`
	Port           int                  `mapstructure:"port"            validate:"gte=80,lte=65535"`
	TrustedProxies []string             `mapstructure:"trusted_proxies" validate:"required"`
	Tracing        TracingConfiguration `mapstructure:"tracing"`
	Profiling      ProfilingConfig      `mapstructure:"profiling"`
}

type TracingConfiguration struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
}

type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address" validate:"required_if=Enabled true"`
}

type DatabaseConfiguration struct {
	Host     string `mapstructure:"host"     validate:"required"`
	Port     int32  `mapstructure:"port"     validate:"gte=80,lte=65535"`
	User     string `mapstructure:"user"     validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name"     validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AuthConfiguration drives the email-code factor: how codes look, how long
// they live, and how failed attempts are throttled.
type AuthConfiguration struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required"`
	DefaultRealm         string `mapstructure:"default_realm"          validate:"required"`
	CodeTTL              int    `mapstructure:"code_ttl"               validate:"gte=30,lte=3600"`
	CodeLength           int    `mapstructure:"code_length"            validate:"gte=6,lte=32"`
	MaxFailedAttempts    int    `mapstructure:"max_failed_attempts"    validate:"gte=2,lte=20"`
	LockoutSeconds       int    `mapstructure:"lockout_seconds"        validate:"gte=60"`
	ChallengeTokenExpiry int    `mapstructure:"challenge_token_expiry" validate:"gte=1,lte=30"`
	ResendPerMinute      int    `mapstructure:"resend_per_minute"      validate:"gte=1,lte=60"`
}

type CacheConfiguration struct {
	Type   string                    `mapstructure:"type"   validate:"omitempty,oneof=redis valkey"`
	Redis  *RedisCacheConfiguration  `mapstructure:"redis"  validate:"required_if=Type redis"`
	Valkey *ValkeyCacheConfiguration `mapstructure:"valkey" validate:"required_if=Type valkey"`
}

type RedisCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type ValkeyCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type QueueConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type EventsConfiguration struct {
	Type      string                 `mapstructure:"type"      validate:"required,oneof=jetstream memory"`
	Queues    map[string]QueueConfig `mapstructure:"queues"    validate:"required"`
	Jetstream *JetStreamEventsConfig `mapstructure:"jetstream" validate:"required_if=Type jetstream"`
}

type JetStreamEventsConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

type MailerConfiguration struct {
	Host          string `mapstructure:"host"            validate:"required"`
	Port          int    `mapstructure:"port"            validate:"required"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"          validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type NotifierConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=smtp filesystem"`
	SMTP       *MailerConfiguration             `mapstructure:"smtp"       validate:"required_if=Type smtp"`
	Filesystem *FilesystemNotifierConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemNotifierConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type ActivityConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=loki filesystem"`
	Loki       *LokiConfiguration               `mapstructure:"loki"       validate:"required_if=Type loki"`
	Filesystem *FilesystemActivityConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemActivityConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type LokiConfiguration struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,http_url"`
}

// AuthConfig groups the knobs services need at request time so service
// structs do not grow a field per setting.
type AuthConfig struct {
	JWTSecret            string
	DefaultRealm         string
	CodeTTL              int
	CodeLength           int
	MaxFailedAttempts    int
	LockoutSeconds       int
	ChallengeTokenExpiry int
	ResendPerMinute      int
}

// GetAuthConfig extracts the request-time auth settings from the full configuration.
func (c *AuthConfiguration) GetAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:            c.JWTSecret,
		DefaultRealm:         c.DefaultRealm,
		CodeTTL:              c.CodeTTL,
		CodeLength:           c.CodeLength,
		MaxFailedAttempts:    c.MaxFailedAttempts,
		LockoutSeconds:       c.LockoutSeconds,
		ChallengeTokenExpiry: c.ChallengeTokenExpiry,
		ResendPerMinute:      c.ResendPerMinute,
	}
}
