package tool

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidflow/config"
)

func testRunner(t *testing.T) *ExecRunner {
	t.Helper()
	return &ExecRunner{
		cfg: &config.Config{OutputDir: t.TempDir()},
		log: log.New(io.Discard),
	}
}

func TestExecRunner_Run(t *testing.T) {
	r := testRunner(t)

	t.Run("captures output on success", func(t *testing.T) {
		out, err := r.Run(context.Background(), "sh", []string{"-c", "echo hello"})
		require.NoError(t, err)
		assert.Contains(t, out, "hello")
	})

	t.Run("returns output alongside error on nonzero exit", func(t *testing.T) {
		out, err := r.Run(context.Background(), "sh", []string{"-c", "echo diagnostics >&2; exit 3"})
		require.Error(t, err)
		assert.Contains(t, out, "diagnostics")
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx, "sh", []string{"-c", "sleep 10"})
		assert.Error(t, err)
	})
}

func TestExecRunner_LookPath(t *testing.T) {
	r := testRunner(t)
	assert.True(t, r.LookPath("sh"))
	assert.False(t, r.LookPath("definitely-not-a-real-binary-1234"))
}

func TestExecRunner_CheckResources(t *testing.T) {
	// Zero thresholds always pass; this exercises the probes themselves.
	r := testRunner(t)
	assert.NoError(t, r.CheckResources())
}
