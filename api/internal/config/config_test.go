package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "OCR_ENGINE", "VISION_API_KEY", "GEMINI_API_KEY", "GEMINI_MODEL",
		"YC_OAUTH_TOKEN", "YC_FOLDER_ID", "FIREBASE_PROJECT_ID", "ADMIN_EMAILS",
		"CALLABLE_ORIGIN", "MAX_BODY_BYTES", "DATABASE_URL", "TELEGRAM_ALLOWED_CHATS",
		"EXTRACTION_RETENTION",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "vision", cfg.Engine)
	assert.Equal(t, DefaultCallableOrigin, cfg.CallableOrigin)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	assert.Equal(t, []string{"saums06@gmail.com"}, cfg.AdminEmails)
	assert.True(t, cfg.AllowList().Allows("saums06@gmail.com"))
	assert.False(t, cfg.CallableEnabled())
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_EMAILS", "a@x.com, b@x.com,")
	t.Setenv("MAX_BODY_BYTES", "1024")
	t.Setenv("FIREBASE_PROJECT_ID", "image-to-data")
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "1, -100200")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.AdminEmails)
	assert.Equal(t, int64(1024), cfg.MaxBodyBytes)
	assert.True(t, cfg.CallableEnabled())
	assert.Equal(t, []int64{1, -100200}, cfg.TelegramAllowedChats)
}

func TestLoadFile_YAML(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "ocr.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
engine: vision
admin_emails:
  - ops@example.com
callable_origin: https://stats.example.com
max_body_bytes: 2048
telegram_allowed_chats: [42]
`), 0o600))

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, cfg.AdminEmails)
	assert.Equal(t, "https://stats.example.com", cfg.CallableOrigin)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.Equal(t, []int64{42}, cfg.TelegramAllowedChats)

	t.Setenv("CALLABLE_ORIGIN", "https://env.example.com")
	cfg, err = LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.CallableOrigin)
}

func TestLoadFile_Errors(t *testing.T) {
	clearEnv(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("MAX_BODY_BYTES", "lots")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "MAX_BODY_BYTES")

	clearEnv(t)
	t.Setenv("TELEGRAM_ALLOWED_CHATS", "abc")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "TELEGRAM_ALLOWED_CHATS")
}

func TestValidate_EngineKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "gemini")
	_, err := LoadFile("")
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Engine)

	t.Setenv("OCR_ENGINE", "yandex")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "YC_OAUTH_TOKEN")

	t.Setenv("OCR_ENGINE", "tesseract")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "unknown OCR_ENGINE")
}

func TestLoadFile_Retention(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXTRACTION_RETENTION", "720h")
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 720*time.Hour, cfg.LogRetention)

	t.Setenv("EXTRACTION_RETENTION", "monthly")
	_, err = LoadFile("")
	assert.Error(t, err)
}

func TestLoadFile_GoogleIsVisionAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "Google")
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "vision", cfg.Engine)

	assert.NoError(t, (&Config{Engine: "google"}).Validate())
	assert.Equal(t, "vision", CanonicalEngine(" GOOGLE "))
	assert.Equal(t, "gemini", CanonicalEngine("Gemini"))
}
