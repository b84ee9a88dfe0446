package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/limaJavier/studyplan/pkg/model"
	"gopkg.in/yaml.v3"
)

// Config holds the advisor's settings.
type Config struct {
	// Catalog is the path of the YAML or JSON catalogue
	Catalog string `yaml:"catalog"`
	// Database is the path of the SQLite database holding saved plans
	Database     string `yaml:"database"`
	StartYear    int    `yaml:"start_year"`
	StartSession string `yaml:"start_session"`
	// Capacities maps a session name (S1, WV, S2, S3) to the credit points
	// that may be taken in it by default
	Capacities map[string]int `yaml:"capacities"`
	MaxYears   int            `yaml:"max_years"`
	LogLevel   string         `yaml:"log_level"`
}

// Default returns the default configuration. The plan starts in the first
// session of startYear.
func Default(startYear int) *Config {
	return &Config{
		Catalog:      "catalog.yaml",
		Database:     filepath.Join(".advisor", "plans.db"),
		StartYear:    startYear,
		StartSession: model.S1.String(),
		Capacities: map[string]int{
			model.S1.String():             40,
			model.WinterVacation.String(): 0,
			model.S2.String():             40,
			model.S3.String():             0,
		},
		MaxYears: 10,
		LogLevel: "info",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Catalog == "" {
		errs = append(errs, errors.New("catalog is required"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if _, err := model.ParseSession(c.StartSession); err != nil {
		errs = append(errs, fmt.Errorf("start_session: %w", err))
	}
	for name, creditPoints := range c.Capacities {
		if _, err := model.ParseSession(name); err != nil {
			errs = append(errs, fmt.Errorf("capacities: %w", err))
		}
		if creditPoints < 0 {
			errs = append(errs, fmt.Errorf("capacities: %v must not be negative", name))
		}
	}
	if c.MaxYears < 1 {
		errs = append(errs, errors.New("max_years must be at least 1"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// PlanConfig converts the configuration into the planner's settings. The
// configuration must be valid.
func (c *Config) PlanConfig() model.PlanConfig {
	planConfig := model.DefaultPlanConfig()
	session, err := model.ParseSession(c.StartSession)
	if err != nil {
		session = model.S1
	}
	planConfig.Start = model.NewTime(c.StartYear, session)
	for name, creditPoints := range c.Capacities {
		if session, err := model.ParseSession(name); err == nil {
			planConfig.Capacities[session] = creditPoints
		}
	}
	planConfig.MaxYears = c.MaxYears
	return planConfig
}

// Merge overlays the set fields of other.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Catalog != "" {
		c.Catalog = other.Catalog
	}
	if other.Database != "" {
		c.Database = other.Database
	}
	if other.StartYear != 0 {
		c.StartYear = other.StartYear
	}
	if other.StartSession != "" {
		c.StartSession = other.StartSession
	}
	for name, creditPoints := range other.Capacities {
		if c.Capacities == nil {
			c.Capacities = make(map[string]int)
		}
		if session, err := model.ParseSession(name); err == nil {
			name = session.String()
		}
		c.Capacities[name] = creditPoints
	}
	if other.MaxYears != 0 {
		c.MaxYears = other.MaxYears
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// LoadFromFile reads a YAML configuration. Fields missing from the file are
// left empty so the result can be merged over another configuration.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
