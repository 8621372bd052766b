// Package config loads the server-side configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - GRPCPort                   : port for the gRPC health service (default 50051)
//   - HTTPPort                   : port for web pages, REST API and WebSocket hub (default 8080)
//   - Auth.Mode                  : "apikey" or "none"
//   - Auth.KeyEnv                : environment variable holding the expected API key
//   - Auth.Header                : gRPC metadata/HTTP header name (default "x-api-key")
//   - Database.Driver            : sqlite | mysql | postgres (default sqlite)
//   - Database.DSN / DSNEnv      : connection string, optionally from the environment
//   - Database.AutoMigrate       : create tables on startup (sqlite)
//   - Snapshot.MaxRowsPerTable   : rows cached per table (default 20)
//   - Snapshot.BaseSeconds       : fixed TTL component (default 240)
//   - Snapshot.CacheTTL          : explicit TTL; 0 derives 2*MaxRowsPerTable+BaseSeconds seconds
//   - Snapshot.CacheKey          : key of the single cached snapshot (default "cachedData")
//   - Snapshot.Tables            : cached tables in build order (default all five)
//   - Sessions.IdleTimeout       : session form idle timeout (default 30m)
//   - WS.Interval                : snapshot feed broadcast period (default 5s)
//   - Alerts.Rules / Webhooks    : build alert rules and their delivery targets
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on every write.
package config
