// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Portal   PortalConfig   `mapstructure:"portal" yaml:"portal"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PortalConfig holds everything needed to drive the commission portal.
// Timeouts are split by operation class: ElementTimeout for visibility and
// click readiness, NavigationTimeout for page transitions, SettleTimeout for
// the longer post-save content waits.
type PortalConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Username          string        `mapstructure:"username" yaml:"-"`
	Password          string        `mapstructure:"password" yaml:"-"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	DefaultFormID     string        `mapstructure:"default_form_id" yaml:"default_form_id"`
	ArtifactsDir      string        `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// DatabaseConfig holds the CRM database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// SetDefaults initializes default values for the configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "epictrips")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Portal --
	v.SetDefault("portal.headless", true)
	v.SetDefault("portal.default_form_id", "EVO2026153349")
	v.SetDefault("portal.artifacts_dir", "artifacts")
	v.SetDefault("portal.element_timeout", "15s")
	v.SetDefault("portal.navigation_timeout", "30s")
	v.SetDefault("portal.settle_timeout", "7s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// base_url has no default, so it needs an explicit binding for the
	// environment to reach it. Credentials come from the environment only,
	// never the config file.
	v.BindEnv("portal.base_url", "EPICTRIPS_PORTAL_BASE_URL")
	v.BindEnv("portal.username", "EPICTRIPS_PORTAL_USERNAME")
	v.BindEnv("portal.password", "EPICTRIPS_PORTAL_PASSWORD")
	v.BindEnv("database.url", "EPICTRIPS_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Portal credentials are
// checked separately by RequirePortal so commands that never touch the
// portal can still run.
func (c *Config) Validate() error {
	if c.Portal.ElementTimeout <= 0 {
		return fmt.Errorf("portal.element_timeout must be a positive duration")
	}
	if c.Portal.NavigationTimeout <= 0 {
		return fmt.Errorf("portal.navigation_timeout must be a positive duration")
	}
	if c.Portal.SettleTimeout <= 0 {
		return fmt.Errorf("portal.settle_timeout must be a positive duration")
	}
	return nil
}

// RequirePortal verifies the settings every portal command depends on and
// names each missing key, mirroring what an operator has to fix.
func (c *Config) RequirePortal() error {
	var missing []string
	if c.Portal.BaseURL == "" {
		missing = append(missing, "portal.base_url")
	}
	if c.Portal.Username == "" {
		missing = append(missing, "EPICTRIPS_PORTAL_USERNAME")
	}
	if c.Portal.Password == "" {
		missing = append(missing, "EPICTRIPS_PORTAL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required portal settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireDatabase verifies the CRM database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is not configured (EPICTRIPS_DATABASE_URL)")
	}
	return nil
}
