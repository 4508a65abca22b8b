package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "STORE_BACKEND", "CONSISTENCY_MODE", "EARN_RATE", "EARN_INTERVAL", "MIN_WITHDRAWAL", "WRITE_RETRIES"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "optimistic", cfg.ConsistencyMode)
	assert.Equal(t, 5, cfg.WriteRetries)
	assert.Equal(t, "0.00000001", cfg.EarnRate.String())
	assert.Equal(t, time.Second, cfg.EarnInterval)
	assert.Equal(t, "0.0001", cfg.MinWithdrawal.String())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendRedis)
	t.Setenv("EARN_INTERVAL", "250ms")
	t.Setenv("EARN_RATE", "0.5")
	t.Setenv("WRITE_RETRIES", "9")
	cfg := LoadConfig()

	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.EarnInterval)
	assert.Equal(t, "0.5", cfg.EarnRate.String())
	assert.Equal(t, 9, cfg.WriteRetries)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("EARN_INTERVAL", "-1s")
	t.Setenv("MIN_WITHDRAWAL", "-3")
	cfg := LoadConfig()

	assert.Equal(t, time.Second, cfg.EarnInterval)
	assert.Equal(t, "0.0001", cfg.MinWithdrawal.String())
}

func TestValidateRequiresProductionSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("IS_PROD", "true")
	t.Setenv("ADMIN_PASSWORD", "")
	cfg := LoadConfig()
	assert.Empty(t, cfg.AdminPassword)
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_PASSWORD")

	t.Setenv("ADMIN_PASSWORD", "s3cret")
	assert.NoError(t, LoadConfig().Validate())

	t.Setenv("JWT_SECRET", "")
	assert.ErrorContains(t, LoadConfig().Validate(), "JWT_SECRET")
}

func TestDevelopmentSeedsKnownAdmin(t *testing.T) {
	t.Setenv("IS_PROD", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("JWT_SECRET", "secret")
	cfg := LoadConfig()

	assert.Equal(t, devAdminPassword, cfg.AdminPassword)
	assert.NoError(t, cfg.Validate())
}
