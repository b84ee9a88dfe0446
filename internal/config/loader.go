package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	EnvConfig   = "ADVISOR_CONFIG"
	EnvCatalog  = "ADVISOR_CATALOG"
	EnvDatabase = "ADVISOR_DB"
	EnvLogLevel = "ADVISOR_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
	now    func() time.Time
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv, now: time.Now}
}

// Load builds the configuration with layered precedence:
// 1. Defaults
// 2. The YAML file at path, or at $ADVISOR_CONFIG when path is empty
// 3. Environment variables
// 4. The overrides, in order (command line flags)
//
// The result is validated.
func (l *Loader) Load(path string, overrides ...func(*Config)) (*Config, error) {
	config := Default(l.now().Year())

	if path == "" {
		path = l.getenv(EnvConfig)
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(fileConfig)
	}

	config.Merge(&Config{
		Catalog:  l.getenv(EnvCatalog),
		Database: l.getenv(EnvDatabase),
		LogLevel: l.getenv(EnvLogLevel),
	})

	for _, override := range overrides {
		override(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
