package sbmcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Pool         PoolConfig         `json:"pool"`
	Query        QueryConfig        `json:"query"`
	Compile      CompileConfig      `json:"compile"`
	Events       EventsConfig       `json:"events"`
	Sanitization []SanitizationRule `json:"sanitization"`
	ReadOnly     bool               `json:"read_only"`
	Timezone     string             `json:"timezone"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `json:"connection"`
	Server     ServerSettings   `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
type ConnectionConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	DBName  string `json:"dbname"`
	SSLMode string `json:"sslmode"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns          int    `json:"max_conns"`
	MinConns          int    `json:"min_conns"`
	MaxConnLifetime   string `json:"max_conn_lifetime"`
	MaxConnIdleTime   string `json:"max_conn_idle_time"`
	HealthCheckPeriod string `json:"health_check_period"`
}

// QueryConfig holds execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds    int `json:"default_timeout_seconds"`
	ListTablesTimeoutSeconds int `json:"list_tables_timeout_seconds"`
	MaxResultLength          int `json:"max_result_length"`
}

// CompileConfig holds query compilation policy.
type CompileConfig struct {
	// MaxLimit caps the read limit. Zero means the built-in default.
	MaxLimit int `json:"max_limit"`
	// AllowSparseRecords permits insert batches with differing key sets,
	// padding missing keys with NULL. Off by default: a heterogeneous
	// batch is rejected as a validation error.
	AllowSparseRecords bool `json:"allow_sparse_records"`
}

// EventsConfig holds broadcast hub and change listener settings.
type EventsConfig struct {
	// Channel is the Postgres NOTIFY channel StartChangeListener LISTENs on.
	// Empty disables the listener; local mutations still broadcast.
	Channel string `json:"channel"`
	// SubscriberBuffer is the per-subscriber delivery queue size.
	// Zero means the built-in default.
	SubscriberBuffer int `json:"subscriber_buffer"`
}

// SanitizationRule defines a regex-based field masking rule applied to
// result rows before they are returned.
type SanitizationRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
	EventsEnabled      bool   `json:"events_enabled"`
	EventsPathPrefix   string `json:"events_path_prefix"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}
