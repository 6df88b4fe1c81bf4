package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseConfig holds the settings of the sqlite user store.
type DatabaseConfig struct {
	Path string `json:"path"`
	// Pragmas are appended to the DSN query string.
	Pragmas string `json:"pragmas"`
}

const defaultSQLitePragmas = "cache=shared&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// GetDSN returns the data source name for the sqlite driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.Pragmas == "" {
		return c.Path
	}
	return c.Path + "?" + c.Pragmas
}

// GetDefaultDatabaseConfig returns the database configuration taken from the environment.
func GetDefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Path:    GetDBPath(),
		Pragmas: defaultSQLitePragmas,
	}
}

// GetDBPath returns the sqlite file path, USERHUB_DB_PATH or ./user.db.
func GetDBPath() string {
	dbPath := os.Getenv("USERHUB_DB_PATH")
	if dbPath == "" {
		dbPath = "./user.db"
	}
	return dbPath
}

// ValidateConfig validates the database configuration
func (c *DatabaseConfig) ValidateConfig() error {
	if c.Path == "" {
		return fmt.Errorf("SQLite path cannot be empty")
	}
	return nil
}

// EnsureDirectoryExists ensures the directory for SQLite database exists
func (c *DatabaseConfig) EnsureDirectoryExists() error {
	return os.MkdirAll(filepath.Dir(c.Path), 0o755)
}
