package config

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	Auth        AuthConfig      `yaml:"auth,omitempty" mapstructure:"auth"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Public  RateLimitTier `yaml:"public,omitempty" mapstructure:"public"`
	Write   RateLimitTier `yaml:"write,omitempty" mapstructure:"write"`
}

// RateLimitTier defines request limits for a specific tier.
type RateLimitTier struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// AuthConfig contains API authentication settings. Reads are always
// public; appends require a write token when any are configured.
type AuthConfig struct {
	WriteTokens []WriteToken `yaml:"write_tokens,omitempty" mapstructure:"write_tokens"`
}

// WriteToken is a named bcrypt hash of a bearer token allowed to append
// entries. Plaintext tokens never appear in config.
type WriteToken struct {
	Name string `yaml:"name" mapstructure:"name"`
	Hash string `yaml:"hash" mapstructure:"hash"`
}

// IndexingConfig configures the background indexing service that scans
// the storage backend and maintains a queryable series index.
type IndexingConfig struct {
	Enabled     bool           `yaml:"enabled" mapstructure:"enabled"`
	Interval    string         `yaml:"interval,omitempty" mapstructure:"interval"`
	Concurrency int            `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	Database    DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains database connection settings for the index.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}
