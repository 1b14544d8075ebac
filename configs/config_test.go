package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "STORE_DRIVER", "TOKEN_TTL", "MEDIA_MAX_FILES", "AUTO_MIGRATE", "DUE_SWEEP_SPEC"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.MediaMaxFiles)
	assert.Equal(t, int64(10*1024*1024), cfg.MediaMaxBytes)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, "0 * * * * *", cfg.DueSweepSpec)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", StoreMongo)
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("MEDIA_MAX_FILES", "4")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("R2_BUCKET_NAME", "media")

	cfg := LoadConfig()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 4, cfg.MediaMaxFiles)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "media", cfg.R2.BucketName)
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "a week")
	t.Setenv("WORKER_CONCURRENCY", "many")
	t.Setenv("AUTO_MIGRATE", "maybe")

	cfg := LoadConfig()
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.WorkerConcurrency)
	assert.False(t, cfg.AutoMigrate)
}
