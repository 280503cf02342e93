package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
	assert.True(t, cfg.Ledger.AsyncAlerts)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "postgres://postgres:@localhost:5432/stock_ledger?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("HTTP_PORT", "9090")
	v.Set("LEDGER_RETRY_BASE", "50ms")
	v.Set("LEDGER_LOCK_TIMEOUT", "1500")
	v.Set("LEDGER_ASYNC_ALERTS", "false")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("DATABASE_URL", "postgres://u:p@db/ledger")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.RetryBase)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ledger.LockTimeout)
	assert.False(t, cfg.Ledger.AsyncAlerts)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://u:p@db/ledger", cfg.DB.ConnectionString())
}

func TestFromViper_RejectsNegativeRetries(t *testing.T) {
	v := viper.New()
	v.Set("LEDGER_MAX_RETRIES", "-1")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := DBConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss/word", DBName: "d", SSLMode: "disable"}
	assert.Contains(t, c.DSN(), "p%40ss%2Fword")
}
