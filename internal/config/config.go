// Package config provides configuration management for smart-coach.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds the configuration for the coach
type Config struct {
	Provider        string
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string

	DataDir        string
	Store          string
	RequestTimeout time.Duration

	LogFile string
	Debug   bool

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Getenv looks up an environment variable
type Getenv func(key string) string

// Load loads configuration from environment variables. Optional values that fail to parse keep their default and
// are reported through logger
func Load(getenv Getenv, logger *zap.Logger) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config := Config{
		Provider:        strings.ToLower(strings.TrimSpace(getenv("COACH_PROVIDER"))),
		Model:           strings.TrimSpace(getenv("COACH_MODEL")),
		GeminiAPIKey:    strings.TrimSpace(getenv("API_KEY")),
		AnthropicAPIKey: strings.TrimSpace(getenv("ANTHROPIC_API_KEY")),
		DataDir:         getenv("COACH_DATA_DIR"),
		Store:           strings.ToLower(strings.TrimSpace(getenv("COACH_STORE"))),
		RequestTimeout:  60 * time.Second, // Default
		LogFile:         getenv("COACH_LOG_FILE"),
		OTLPEndpoint:    getenv("COACH_OTLP_ENDPOINT"),
	}
	if config.GeminiAPIKey == "" {
		config.GeminiAPIKey = strings.TrimSpace(getenv("GEMINI_API_KEY"))
	}
	if config.Provider == "" {
		config.Provider = "gemini"
	}
	if config.Store == "" {
		config.Store = StoreFile
	}
	if config.DataDir == "" {
		config.DataDir = defaultDataDir()
	}
	if config.LogFile == "" {
		config.LogFile = filepath.Join(config.DataDir, "smart-coach.log")
	}

	parseOptional(getenv, logger, "COACH_REQUEST_TIMEOUT", &config.RequestTimeout, time.ParseDuration)
	parseOptional(getenv, logger, "COACH_DEBUG", &config.Debug, strconv.ParseBool)
	parseOptional(getenv, logger, "COACH_TELEMETRY", &config.TelemetryEnabled, strconv.ParseBool)

	return config
}

func parseOptional[T any](getenv Getenv, logger *zap.Logger, key string, dest *T, parseFn func(string) (T, error)) {
	str := strings.TrimSpace(getenv(key))
	if str == "" {
		return // Leave default value
	}
	v, err := parseFn(str)
	if err != nil {
		logger.Warn("ignoring unparsable environment variable",
			zap.String("key", key),
			zap.String("value", str),
			zap.Error(err),
		)
		return
	}
	*dest = v
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "smart-coach")
}

// Credential returns the API key for the selected provider. Empty means no credential is configured
func (c Config) Credential() string {
	if c.Provider == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

// CredentialEnvVar names the environment variable that supplies the credential for the selected provider
func (c Config) CredentialEnvVar() string {
	if c.Provider == "anthropic" {
		return "ANTHROPIC_API_KEY"
	}
	return "API_KEY"
}

// Validate checks that the configuration is usable. A missing credential is not an error; the chat reports it instead
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("invalid COACH_PROVIDER '%s': expected 'gemini' or 'anthropic'", c.Provider)
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("invalid COACH_STORE '%s': expected '%s' or '%s'", c.Store, StoreFile, StoreSQLite)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid COACH_REQUEST_TIMEOUT '%s': must not be negative", c.RequestTimeout)
	}
	return nil
}
