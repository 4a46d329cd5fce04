package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Second, cfg.RunPollDelay)
	assert.Equal(t, 0, cfg.DefaultThrottleLimit)
	assert.Equal(t, 30*time.Second, cfg.RemoteConnectTimeout)
	assert.Equal(t, 300*time.Second, cfg.RemoteReadTimeout)
	assert.Equal(t, 5, cfg.ParallelJobLimit)
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`run_poll_delay: 1s
default_throttle_limit: 3
log_format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.RunPollDelay)
	assert.Equal(t, 3, cfg.DefaultThrottleLimit)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5, cfg.ParallelJobLimit, "unset keys keep their defaults")
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	// An explicitly named but absent config file is an error; the
	// returned config still carries usable defaults.
	assert.Error(t, err)
	assert.Equal(t, 5*time.Second, cfg.RunPollDelay)
}

func TestWorkflowSearchPath(t *testing.T) {
	t.Setenv("GENEFLOW_PATH", "/a/workflows:/b/workflows")
	assert.Equal(t, []string{"/a/workflows", "/b/workflows"}, WorkflowSearchPath())

	t.Setenv("GENEFLOW_PATH", "")
	assert.Nil(t, WorkflowSearchPath())
}
