// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/keyledger/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr         string
	DBPath             string
	SlotName           string
	IDScheme           model.IDScheme
	ExpiringSoonWindow time.Duration
	LogLevel           slog.Level

	// SecretKey is the 32-byte AES-256 key decoded from KEYLEDGER_SECRET_KEY.
	// Nil when the variable is unset; the slot is then stored unencrypted.
	SecretKey []byte
}

// HasSecretKey returns true when slot encryption is configured.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: KEYLEDGER_LISTEN_ADDR (127.0.0.1:8080),
// KEYLEDGER_DB_PATH (keyledger.db), KEYLEDGER_SLOT (users),
// KEYLEDGER_ID_SCHEME (counter), KEYLEDGER_EXPIRING_SOON (72h),
// KEYLEDGER_LOG_LEVEL (info), KEYLEDGER_SECRET_KEY (64 hex chars, unset = no encryption).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("KEYLEDGER_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	dbPath := "keyledger.db"
	if v, ok := os.LookupEnv("KEYLEDGER_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	slotName := "users"
	if v, ok := os.LookupEnv("KEYLEDGER_SLOT"); ok {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, errors.New("KEYLEDGER_SLOT must not be empty")
		}
		slotName = v
	}

	idScheme := model.IDSchemeCounter
	if v, ok := os.LookupEnv("KEYLEDGER_ID_SCHEME"); ok && v != "" {
		parsed, err := model.ParseIDScheme(v)
		if err != nil {
			return nil, fmt.Errorf("KEYLEDGER_ID_SCHEME: %w", err)
		}
		idScheme = parsed
	}

	expiringSoon := 72 * time.Hour
	if v, ok := os.LookupEnv("KEYLEDGER_EXPIRING_SOON"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("KEYLEDGER_EXPIRING_SOON has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("KEYLEDGER_EXPIRING_SOON must not be negative, got %s", parsed)
		}
		expiringSoon = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("KEYLEDGER_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("KEYLEDGER_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("KEYLEDGER_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("KEYLEDGER_SECRET_KEY must be hex-encoded: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("KEYLEDGER_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		SlotName:           slotName,
		IDScheme:           idScheme,
		ExpiringSoonWindow: expiringSoon,
		LogLevel:           logLevel,
		SecretKey:          secretKey,
	}, nil
}
