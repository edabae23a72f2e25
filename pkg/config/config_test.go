package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://www.fedex.com/payment/invoice", cfg.FedEx.PaymentURL)
	assert.Equal(t, "IL", cfg.FedEx.DefaultCountry)
	assert.Equal(t, 10*time.Second, cfg.FedEx.Timeouts.VerifyError)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, Viewport{Width: 1280, Height: 720}, cfg.Browser.Viewport)
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
browser:
  workers: "2"
  headless: false
  slow_motion: 250ms
fedex:
  default_country: US
  timeouts:
    outcome: 20s
database:
  path: /tmp/pay.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "2", cfg.Browser.Workers)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.SlowMotion)
	assert.Equal(t, "US", cfg.FedEx.DefaultCountry)
	assert.Equal(t, 20*time.Second, cfg.FedEx.Timeouts.Outcome)
	// untouched nested fields keep their defaults
	assert.Equal(t, 60*time.Second, cfg.FedEx.Timeouts.Navigation)
	assert.Equal(t, "FEDEX", cfg.FedEx.InvoiceType)
	assert.Equal(t, "/tmp/pay.db", cfg.Database.Path)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("API_KEY", "secret")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("PAYMENTS_DB", "env.db")

	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: \"9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.ApiKey)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "env.db", cfg.Database.Path)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)

	t.Setenv("BROWSER_HEADLESS", "maybe")
	_, err = LoadConfig(writeConfig(t, ""))
	assert.Error(t, err)
}
