package sqlite

import "time"

// Config holds SQLite connection settings
type Config struct {
	// Path is the database file. ":memory:" is not supported because
	// every pooled connection would see a separate database.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for SQLite configuration
func DefaultConfig() Config {
	return Config{
		Path:            "pongarena.db",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}
