package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	iauth "github.com/rautatech/catalog/internal/auth"
	"github.com/rautatech/catalog/internal/database"
)

// Config represents the runtime configuration for the catalog backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	MFA         MFAConfig         `mapstructure:"mfa"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Bootstrap   BootstrapConfig   `mapstructure:"bootstrap"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures session cookie settings.
type AuthConfig struct {
	Session SessionSettings `mapstructure:"session"`
}

// SessionSettings configures issued session tokens.
type SessionSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// MFAConfig configures the two-factor engine.
type MFAConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
	Issuer        string `mapstructure:"issuer"`
	QRCodeSize    int    `mapstructure:"qr_code_size"`
}

// CatalogConfig holds storefront settings.
type CatalogConfig struct {
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	StoreName      string `mapstructure:"store_name"`
}

// BootstrapConfig describes the first-boot admin account. Ignored once any
// user exists.
type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
	AdminName     string `mapstructure:"admin_name"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig controls the background cleanup jobs.
type MaintenanceConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Schedule      string `mapstructure:"schedule"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("RAUTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate enforces the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Session.Secret) == "" {
		return errors.New("config: auth.session.secret is required")
	}
	if key := len(c.MFA.EncryptionKey); key != 16 && key != 24 && key != 32 {
		return fmt.Errorf("config: mfa.encryption_key must be 16, 24, or 32 bytes, got %d", key)
	}
	return nil
}

// DatabaseSettings maps the configuration onto the database package options.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		cfg.Host = c.Database.Postgres.Host
		cfg.Port = c.Database.Postgres.Port
		cfg.Name = c.Database.Postgres.Database
		cfg.User = c.Database.Postgres.Username
		cfg.Password = c.Database.Postgres.Password
	case "mysql":
		cfg.Host = c.Database.MySQL.Host
		cfg.Port = c.Database.MySQL.Port
		cfg.Name = c.Database.MySQL.Database
		cfg.User = c.Database.MySQL.Username
		cfg.Password = c.Database.MySQL.Password
	}

	return cfg
}

// SessionServiceConfig maps the configuration onto the session issuer.
func (c *Config) SessionServiceConfig() iauth.SessionConfig {
	return iauth.SessionConfig{
		Secret: c.Auth.Session.Secret,
		Issuer: c.Auth.Session.Issuer,
		TTL:    c.Auth.Session.TTL,
	}
}

// setDefaults registers every configuration key. AutomaticEnv only overrides
// keys viper already knows about, so secrets and other keys without a real
// default still get an empty placeholder here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/catalog.sqlite")
	v.SetDefault("database.dsn", "")
	for _, prefix := range []string{"database.postgres", "database.mysql"} {
		v.SetDefault(prefix+".enabled", false)
		v.SetDefault(prefix+".host", "")
		v.SetDefault(prefix+".port", 0)
		v.SetDefault(prefix+".database", "")
		v.SetDefault(prefix+".username", "")
		v.SetDefault(prefix+".password", "")
	}

	v.SetDefault("auth.session.secret", "")
	v.SetDefault("auth.session.issuer", "rauta-catalog")
	v.SetDefault("auth.session.ttl", "8760h") // 1 year

	v.SetDefault("mfa.encryption_key", "")
	v.SetDefault("mfa.issuer", "Rauta Tech")
	v.SetDefault("mfa.qr_code_size", 256)

	v.SetDefault("catalog.whatsapp_number", "")
	v.SetDefault("catalog.store_name", "Rauta Tech")

	v.SetDefault("bootstrap.admin_email", "")
	v.SetDefault("bootstrap.admin_password", "")
	v.SetDefault("bootstrap.admin_name", "")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.schedule", "@daily")
	v.SetDefault("maintenance.retention_days", 30)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
