package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, "FCFA", cfg.Currency)
	assert.Equal(t, "Delivery dispatch", cfg.Branding.SiteHeader)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.NotNil(t, cfg.Location)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", "file:dispatch.db")
	t.Setenv("PUBLIC_BASE_URL", "https://dispatch.example.com/")
	t.Setenv("SESSION_TIMEOUT", "120")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("WHATSAPP_API_URL", "https://wa.example.com")
	t.Setenv("WHATSAPP_PATH", "device-1")
	t.Setenv("SITE_TITLE", "Back office")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:dispatch.db", cfg.DatabaseURL)
	assert.Equal(t, "https://dispatch.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL())
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.WhatsApp.Enabled())
	assert.Equal(t, "Back office", cfg.Branding.SiteTitle)
}

func TestLoadConfigFileAndFlagsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: \"9000\"\ncurrency: EUR\n"), 0o600))

	v := viper.New()
	v.Set("currency", "XOF")
	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "XOF", cfg.Currency)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "oracle")
		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})
	t.Run("session timeout", func(t *testing.T) {
		t.Setenv("SESSION_TIMEOUT", "0")
		_, err := Load(viper.New(), "")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
