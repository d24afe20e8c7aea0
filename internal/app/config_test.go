package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "rauta-catalog", cfg.Auth.Session.Issuer)
	require.Equal(t, 365*24*time.Hour, cfg.Auth.Session.TTL)
	require.Equal(t, "Rauta Tech", cfg.MFA.Issuer)
	require.Equal(t, 256, cfg.MFA.QRCodeSize)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.Schedule)
	require.Equal(t, 30, cfg.Maintenance.RetentionDays)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RAUTA_SERVER_PORT", "9001")
	t.Setenv("RAUTA_CATALOG_WHATSAPP_NUMBER", "5511999999999")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "5511999999999", cfg.Catalog.WhatsAppNumber)
}

func TestLoadConfigSecretsFromEnv(t *testing.T) {
	// Keys without a real default must still be env-bindable.
	t.Setenv("RAUTA_AUTH_SESSION_SECRET", "env-signing-key")
	t.Setenv("RAUTA_MFA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("RAUTA_BOOTSTRAP_ADMIN_EMAIL", "admin@example.com")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "env-signing-key", cfg.Auth.Session.Secret)
	require.Equal(t, "admin@example.com", cfg.Bootstrap.AdminEmail)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Error(t, cfg.Validate())

	cfg.Auth.Session.Secret = "a-very-secret-signing-key"
	require.Error(t, cfg.Validate())

	cfg.MFA.EncryptionKey = "0123456789abcdef0123456789abcdef"
	require.NoError(t, cfg.Validate())
}

func TestDatabaseSettingsPostgres(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: "postgres",
			Postgres: DBAuthConfig{
				Host:     "db.internal",
				Port:     5432,
				Database: "catalog",
				Username: "catalog",
				Password: "secret",
			},
		},
	}

	settings := cfg.DatabaseSettings()
	require.Equal(t, "postgres", settings.Driver)
	require.Equal(t, "db.internal", settings.Host)
	require.Equal(t, 5432, settings.Port)
	require.Equal(t, "catalog", settings.Name)
}
