package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, float64(10), cfg.Webhook.RateLimit)
	assert.Equal(t, 20, cfg.Webhook.Burst)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
  read_timeout: 5s
log:
  level: debug
webhook:
  rate_limit: 2.5
  burst: 5
oncall:
  default:
    primary: alice
    secondary: bob
    escalation:
      - carol
      - dave
  platform:
    primary: erin
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "9090", cfg.Server.MetricsPort, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2.5, cfg.Webhook.RateLimit)
	assert.Equal(t, 5, cfg.Webhook.Burst)

	require.Contains(t, cfg.OnCall, "default")
	assert.Equal(t, "alice", cfg.OnCall["default"].Primary)
	assert.Equal(t, []string{"carol", "dave"}, cfg.OnCall["default"].Escalation)
	assert.Equal(t, "erin", cfg.OnCall["platform"].Primary)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("INCIDENTD_SERVER__PORT", "7777")
	t.Setenv("INCIDENTD_SERVER__METRICS_PORT", "7778")
	t.Setenv("INCIDENTD_LOG__LEVEL", "warn")
	t.Setenv("INCIDENTD_DATABASE__URL", "postgres://localhost:5432/incidents")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, "7778", cfg.Server.MetricsPort)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres://localhost:5432/incidents", cfg.Database.URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	t.Setenv("INCIDENTD_LOG__LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
