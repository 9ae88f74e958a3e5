package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "local", cfg.Storage)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, "output/emails", cfg.Mail.DevDir)
	assert.False(t, cfg.Mail.Postmark())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOOKUP_DEBOUNCE", "150ms")
	t.Setenv("EXPORT_STORAGE", "s3")
	t.Setenv("S3_BUCKET", "certificates")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")
	t.Setenv("POSTMARK_SERVER_TOKEN", "server")
	t.Setenv("POSTMARK_ACCOUNT_TOKEN", "account")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "certificates", cfg.S3.Bucket)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.True(t, cfg.Mail.Postmark())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("EXPORT_STORAGE", "s3")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("EXPORT_STORAGE", "ftp")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("EXPORT_STORAGE", "local")
	t.Setenv("LOOKUP_DEBOUNCE", "soon")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
