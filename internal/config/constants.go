package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 70 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Telegram transport
const (
	TelegramRequestTimeout = 30 * time.Second
	TelegramPollTimeout    = 30
	UpdateDedupTTL         = 24 * time.Hour

	// Updates carry one message or callback query; text is at most 4096
	// characters, so 64KB leaves room for entities and reply context.
	TelegramMaxUpdateBytes = 64 << 10
)

// Admin API request bodies; every admin route is parameterless.
const AdminMaxBodyBytes = 16 << 10

// Background job intervals
const SessionSweepInterval = 5 * time.Minute

// Report history and export sizes
const (
	DeviceHistoryLimit = 10
	ExportRecordsLimit = 1000
)
