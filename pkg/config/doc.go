// Package config provides application configuration management.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// named by AGORA_CONFIG_FILE, then AGORA_* environment variables. A .env file
// in the working directory (or the file named by AGORA_ENV_FILE) is loaded
// into the environment first without overriding variables already set.
//
// # Configuration Structure
//
// Server settings:
//
//	AGORA_HOST="0.0.0.0"
//	AGORA_PORT="8080"
//	AGORA_READ_TIMEOUT="15s"
//	AGORA_SHUTDOWN_TIMEOUT="30s"
//
// Storage settings:
//
//	AGORA_STORAGE_TYPE="postgres"  # postgres, sqlite
//	AGORA_POSTGRES_URL="postgres://localhost/agora?sslmode=disable"
//	AGORA_SQLITE_PATH="agora.db"
//
// Region cache settings:
//
//	AGORA_CACHE_ENABLED="true"
//	AGORA_REDIS_URL="redis://localhost:6379"
//	AGORA_CACHE_TTL="15m"
//
// Observability settings:
//
//	AGORA_LOG_LEVEL="info"  # debug, info, warn, error
//	AGORA_METRICS_ENABLED="true"
//	AGORA_OTEL_ENABLED="true"
//	AGORA_OTEL_ENDPOINT="otel-collector:4317"
//
// Vote casting:
//
//	AGORA_VOTE_RATE_LIMIT="60"  # per user per window, 0 disables
//	AGORA_VOTE_RATE_WINDOW="1m"
//
// Housekeeping (cron expressions, empty disables a job):
//
//	AGORA_MAINTENANCE_ENABLED="true"
//	AGORA_LEGACY_VOTE_SCHEDULE="*/15 * * * *"
//	AGORA_TOKEN_PURGE_SCHEDULE="0 * * * *"
//
// The same keys in YAML form:
//
//	server:
//	  port: "8080"
//	storage:
//	  type: postgres
//	  postgres_url: postgres://localhost/agora
//	observability:
//	  log_level: debug
//
// With AGORA_CONFIG_FILE set, Watch reloads the file on change so settings
// such as the log level can be adjusted without a restart.
package config
