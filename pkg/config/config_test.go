package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorageLocal, cfg.Uploads.Storage)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.Equal(t, 4, cfg.Approval.RecomputeWorkers)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("UPLOADS_STORAGE", " S3 ")
	v.Set("S3_BUCKET", "score-files")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("NOTIFY_RETRY_DELAY", "not-a-duration")
	v.Set("FRONTEND_URL", "https://portal.example/")

	cfg := fromViper(v)
	assert.Equal(t, StorageS3, cfg.Uploads.Storage)
	assert.Equal(t, "score-files", cfg.Uploads.S3.Bucket)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
	assert.Equal(t, "https://portal.example", cfg.SMTP.FrontendURL)
}

func TestUnknownStorageFallsBackToLocal(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("UPLOADS_STORAGE", "gcs")
	assert.Equal(t, StorageLocal, fromViper(v).Uploads.Storage)
}
