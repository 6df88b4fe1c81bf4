// Package config exposes the runtime settings of the userhub service, read from the
// environment (optionally seeded from a .env file) with defaults for local development.
package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

const (
	defaultListen         = "127.0.0.1"
	defaultPort           = 8000
	defaultPasswordHash   = "bcrypt"
	defaultBcryptCost     = 12
	defaultCheckpointCron = "@every 10m"
)

// LoadEnv merges the given .env files into the process environment. Variables that are
// already set win. Missing files are not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("USERHUB_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("USERHUB_DEBUG") == "true"
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("USERHUB_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "log"
	}
	return logFolderPath
}

func GetListen() string {
	listen := os.Getenv("USERHUB_LISTEN")
	if listen == "" {
		return defaultListen
	}
	return listen
}

// GetPort returns the HTTP port. Unparsable values fall back to the default.
func GetPort() int {
	return getInt("USERHUB_PORT", defaultPort)
}

// GetPasswordHash names the credential hashing scheme: "bcrypt" or "sha256".
func GetPasswordHash() string {
	scheme := strings.ToLower(os.Getenv("USERHUB_PASSWORD_HASH"))
	if scheme == "" {
		return defaultPasswordHash
	}
	return scheme
}

func GetBcryptCost() int {
	return getInt("USERHUB_BCRYPT_COST", defaultBcryptCost)
}

func GetCheckpointCron() string {
	spec := os.Getenv("USERHUB_CHECKPOINT_CRON")
	if spec == "" {
		return defaultCheckpointCron
	}
	return spec
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
