package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maintrack/maintrack/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultGRPCPort        = 50051
	DefaultHTTPPort        = 8080
	DefaultDriver          = "sqlite"
	DefaultDSN             = "maintrack.db"
	DefaultMaxRowsPerTable = 20
	DefaultBaseSeconds     = 240
	DefaultCacheKey        = "cachedData"
	DefaultSessionIdle     = 30 * time.Minute
	DefaultWSInterval      = 5 * time.Second
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC health service listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the web endpoints, REST API and WebSocket hub
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates gRPC and REST API clients.
	Auth AuthConfig `yaml:"auth"`

	// Database selects the record source backing the snapshot.
	Database DatabaseConfig `yaml:"database"`

	// Snapshot controls the cached table snapshot.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Sessions controls the server-side session store of the session form.
	Sessions SessionsConfig `yaml:"sessions"`

	// WS controls the snapshot feed.
	WS WSConfig `yaml:"ws"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition over snapshot builds.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "consecutive_failures >= 3",
	// "minutes_since_success > 15", "state == failing". Rules are evaluated
	// after every build and once a minute in between, so time-based
	// conditions also fire while no requests arrive. Before the first
	// successful build, minutes_since_success counts from server start.
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	// Driver is one of: sqlite | mysql | postgres.
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string. For sqlite it is a file
	// path; mysql DSNs should carry parseTime=true so dates scan as time.Time.
	DSN string `yaml:"dsn"`

	// DSNEnv, when set, names an environment variable that overrides DSN.
	DSNEnv string `yaml:"dsn_env"`

	// AutoMigrate creates the maintrack tables on startup (sqlite only).
	AutoMigrate bool `yaml:"auto_migrate"`
}

// EffectiveDSN returns the DSN from DSNEnv when that variable is set, else DSN.
func (d DatabaseConfig) EffectiveDSN() string {
	if d.DSNEnv != "" {
		if v := os.Getenv(d.DSNEnv); v != "" {
			return v
		}
	}
	return d.DSN
}

// SnapshotConfig controls the cached table snapshot.
type SnapshotConfig struct {
	// MaxRowsPerTable caps how many rows of each table are cached (default 20).
	MaxRowsPerTable int `yaml:"max_rows_per_table"`

	// BaseSeconds is the fixed part of the derived TTL (default 240).
	BaseSeconds int `yaml:"base_seconds"`

	// CacheTTL overrides the derived TTL when non-zero.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheKey is the key the current snapshot is stored under.
	CacheKey string `yaml:"cache_key"`

	// Tables lists the cached tables, in build order. Default: all tables.
	Tables []string `yaml:"tables"`
}

// TTL returns CacheTTL when set, otherwise 2*MaxRowsPerTable + BaseSeconds
// seconds (280s with the defaults).
func (s SnapshotConfig) TTL() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return time.Duration(2*s.MaxRowsPerTable+s.BaseSeconds) * time.Second
}

// TableList returns Tables as typed table names. Load has already validated
// every entry.
func (s SnapshotConfig) TableList() []types.Table {
	out := make([]types.Table, 0, len(s.Tables))
	for _, name := range s.Tables {
		if t, ok := types.ParseTable(name); ok {
			out = append(out, t)
		}
	}
	return out
}

// SessionsConfig controls the session store used by /searchform2.
type SessionsConfig struct {
	// IdleTimeout is how long an untouched session survives (default 30m).
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// WSConfig controls the WebSocket snapshot feed.
type WSConfig struct {
	// Interval is the broadcast period (default 5s).
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	if len(cfg.Server.Snapshot.Tables) == 0 {
		cfg.Server.Snapshot.Tables = allTableNames()
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			Database: DatabaseConfig{
				Driver: DefaultDriver,
				DSN:    DefaultDSN,
			},
			Snapshot: SnapshotConfig{
				MaxRowsPerTable: DefaultMaxRowsPerTable,
				BaseSeconds:     DefaultBaseSeconds,
				CacheKey:        DefaultCacheKey,
			},
			Sessions: SessionsConfig{
				IdleTimeout: DefaultSessionIdle,
			},
			WS: WSConfig{
				Interval: DefaultWSInterval,
			},
		},
	}
}

func allTableNames() []string {
	out := make([]string, 0, len(types.AllTables))
	for _, t := range types.AllTables {
		out = append(out, string(t))
	}
	return out
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("server.database.driver %q unknown: want sqlite|mysql|postgres", s.Database.Driver)
	}
	if s.Database.EffectiveDSN() == "" {
		return fmt.Errorf("server.database.dsn must not be empty")
	}
	if s.Snapshot.MaxRowsPerTable <= 0 {
		return fmt.Errorf("server.snapshot.max_rows_per_table must be positive")
	}
	if s.Snapshot.BaseSeconds < 0 {
		return fmt.Errorf("server.snapshot.base_seconds must not be negative")
	}
	if s.Snapshot.CacheTTL < 0 {
		return fmt.Errorf("server.snapshot.cache_ttl must not be negative")
	}
	if s.Snapshot.CacheKey == "" {
		return fmt.Errorf("server.snapshot.cache_key must not be empty")
	}
	seen := make(map[string]bool, len(s.Snapshot.Tables))
	for _, name := range s.Snapshot.Tables {
		if _, ok := types.ParseTable(name); !ok {
			return fmt.Errorf("server.snapshot.tables: unknown table %q", name)
		}
		if seen[name] {
			return fmt.Errorf("server.snapshot.tables: duplicate table %q", name)
		}
		seen[name] = true
	}
	if s.Sessions.IdleTimeout <= 0 {
		return fmt.Errorf("server.sessions.idle_timeout must be positive")
	}
	if s.WS.Interval <= 0 {
		return fmt.Errorf("server.ws.interval must be positive")
	}
	names := make(map[string]bool, len(s.Alerts.Rules))
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("server.alerts.rules: duplicate rule %q", r.Name)
		}
		names[r.Name] = true
		if r.Cooldown < 0 {
			return fmt.Errorf("server.alerts.rules[%d].cooldown must not be negative", i)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want teams|slack|pagerduty|http", i, w.Type)
		}
	}
	return nil
}
