// vidflow/config/config_test.go
package config_test // Use an external test package

import (
	"testing"
	"time"

	"vidflow/config" // Import the package we are testing

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("VIDFLOW_PORT", "")
		t.Setenv("VIDFLOW_FF_BIN", "")
		t.Setenv("VIDFLOW_DEMUCS_BIN", "")
		t.Setenv("VIDFLOW_TOOL_TIMEOUT", "")
		t.Setenv("VIDFLOW_MAX_UPLOAD_SIZE", "")
		t.Setenv("VIDFLOW_AUTH_ENABLE", "")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "5000", cfg.Port)
		assert.Equal(t, "0.0.0.0", cfg.Host)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "demucs", cfg.DemucsBin)
		assert.Equal(t, "htdemucs", cfg.DemucsModel)
		assert.Equal(t, 30*time.Minute, cfg.ToolTimeout)
		assert.Equal(t, int64(500*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, "./uploads", cfg.UploadDir)
		assert.Equal(t, "./outputs", cfg.OutputDir)
		assert.Equal(t, false, cfg.AuthEnable)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("VIDFLOW_PORT", "9999")
		t.Setenv("VIDFLOW_FF_BIN", "/opt/ffmpeg/bin/ffmpeg")
		t.Setenv("VIDFLOW_DEMUCS_MODEL", "mdx_extra")
		t.Setenv("VIDFLOW_TOOL_TIMEOUT", "1h30m")
		t.Setenv("VIDFLOW_MAX_UPLOAD_SIZE", "50MB")
		t.Setenv("VIDFLOW_AUTH_ENABLE", "true")
		t.Setenv("VIDFLOW_AUTH_KEY", "newsecret")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFBin)
		assert.Equal(t, "mdx_extra", cfg.DemucsModel)
		assert.Equal(t, 90*time.Minute, cfg.ToolTimeout)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, true, cfg.AuthEnable)
		assert.Equal(t, "newsecret", cfg.AuthKey)
	})
}
