package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "AIzaSyTESTKEY0123456789abcdefghijk"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IMAGESTUDIO_GEMINI_API_KEY", validKey)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, validKey, cfg.Gemini.APIKey)
	assert.Equal(t, "imagen-4.0-generate-001", cfg.Gemini.ImagenModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.EditModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.VisionModel)
	assert.Zero(t, cfg.Tokens.Total, "未指定なら保存済みの総量を使うので 0 のままなのだ")
	assert.Equal(t, 1500*time.Millisecond, cfg.Generation.InterCallDelay)
	assert.Equal(t, 2*time.Minute, cfg.Generation.BatchTimeout)
	assert.Equal(t, "sunset", cfg.Edit.FallbackEffect)
	assert.Equal(t, 15<<20, cfg.Edit.InlineLimit)
	assert.Equal(t, BackendFile, cfg.Session.Backend)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
gemini:
  api_key: ` + validKey + `
tokens:
  total: 2500
generation:
  inter_call_delay: 250ms
session:
  backend: redis
  redis_addr: redis.internal:6379
logger:
  level: debug
  encoding: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imagestudio.yaml"), []byte(yaml), 0o600))
	t.Setenv("IMAGESTUDIO_TOKENS_TOTAL", "3000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Tokens.Total, "環境変数がファイルより優先されるのだ")
	assert.Equal(t, 250*time.Millisecond, cfg.Generation.InterCallDelay)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "json", cfg.Logger.Encoding)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"API キーなし", map[string]string{}},
		{"API キーの形式不正", map[string]string{"IMAGESTUDIO_GEMINI_API_KEY": "sk-not-a-gemini-key"}},
		{"トークン総量が負", map[string]string{"IMAGESTUDIO_GEMINI_API_KEY": validKey, "IMAGESTUDIO_TOKENS_TOTAL": "-1"}},
		{"未知のバックエンド", map[string]string{"IMAGESTUDIO_GEMINI_API_KEY": validKey, "IMAGESTUDIO_SESSION_BACKEND": "postgres"}},
		{"未知のログレベル", map[string]string{"IMAGESTUDIO_GEMINI_API_KEY": validKey, "IMAGESTUDIO_LOGGER_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMAGESTUDIO_GEMINI_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	assert.NoError(t, ValidateAPIKey(validKey))
	assert.Error(t, ValidateAPIKey(""))
	assert.Error(t, ValidateAPIKey("AIzaShort"))
	assert.Error(t, ValidateAPIKey("XXXXSyTESTKEY0123456789abcdefghijk"))
}
