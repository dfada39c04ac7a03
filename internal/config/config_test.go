package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 365, cfg.Audit.DaysToKeep)
	assert.Equal(t, "0 3 * * *", cfg.Audit.PurgeSchedule)
	assert.Equal(t, 10*time.Second, cfg.RabbitMQ.Outbox.PollInterval)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
app:
  env: development
server:
  port: 9090
postgres:
  host: db
  user: shop
  password: secret
  db: shopdb
audit:
  days_to_keep: 90
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("SHOP_POSTGRES_PORT", "6543")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.True(t, cfg.Development())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 90, cfg.Audit.DaysToKeep)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t,
		"host=db port=6543 user=shop password=secret dbname=shopdb sslmode=disable",
		cfg.Postgres.DSN(),
	)
}

func TestLoadRejectsAuthWithoutSecret(t *testing.T) {
	t.Setenv("SHOP_AUTH_ENABLED", "true")

	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestRabbitMQURL(t *testing.T) {
	c := RabbitMQConfig{User: "u", Password: "p", Host: "mq", Port: 5672}
	assert.Equal(t, "amqp://u:p@mq:5672/", c.URL())
}
