package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pos-invoice/internal/core/engine"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"POS_BACKEND", "HTTP_PORT", "GRPC_PORT", "MYSQL_DSN", "REDIS_ADDR", "PRODUCTS_FILE",
		"INVOICES_FILE", "MIGRATE_ON_BOOT", "BUSINESS_NAME", "PROMO_TEXT", "CURRENCY_SYMBOL",
		"DUPLICATE_POLICY", "LOCK_TTL", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "BREAKER_TIMEOUT",
		"BREAKER_MAX_FAILURES", "LOG_DEV",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendXLSX, cfg.Backend)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "products.xlsx", cfg.ProductsFile)
	assert.Equal(t, "customers.xlsx", cfg.InvoicesFile)
	assert.Equal(t, "$", cfg.CurrencySymbol)
	assert.Equal(t, engine.RejectDuplicates, cfg.DuplicatePolicy)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, uint32(5), cfg.BreakerMaxFailures)
	assert.False(t, cfg.Remote())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POS_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DUPLICATE_POLICY", "merge")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("CURRENCY_SYMBOL", "₹")
	t.Setenv("BREAKER_MAX_FAILURES", "2")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, engine.MergeDuplicates, cfg.DuplicatePolicy)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, "₹", cfg.CurrencySymbol)
	assert.Equal(t, uint32(2), cfg.BreakerMaxFailures)
	assert.True(t, cfg.LogDev)
	assert.True(t, cfg.Remote())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"unknown backend":   {"POS_BACKEND", "sheets"},
		"unknown policy":    {"DUPLICATE_POLICY", "sum"},
		"bad duration":      {"LOCK_TTL", "soon"},
		"negative duration": {"REQUEST_TIMEOUT", "-1s"},
		"bad int":           {"BREAKER_MAX_FAILURES", "many"},
		"zero failures":     {"BREAKER_MAX_FAILURES", "0"},
		"bad bool":          {"LOG_DEV", "maybe"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env[0], env[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
