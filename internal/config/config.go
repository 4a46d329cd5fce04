// Package config holds GeneFlow's engine-wide settings, bound from a
// YAML file (default ~/.geneflow/config.yaml) plus environment
// variables via spf13/viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine-wide settings set the runtime reads at startup.
// It is distinct from any workflow/job/app definition: those come from
// the Store, not from this file.
type Config struct {
	// RunPollDelay is the default interval between check_running_jobs
	// passes (default 5s).
	RunPollDelay time.Duration `mapstructure:"run_poll_delay"`
	// DefaultThrottleLimit applies to any step that does not declare its
	// own throttle_limit (0 means unlimited).
	DefaultThrottleLimit int `mapstructure:"default_throttle_limit"`
	// StoreDSN is the SQLite store's DSN (a file path for modernc.org/sqlite).
	StoreDSN string `mapstructure:"store_dsn"`
	// NotifierTimeout bounds each notification POST.
	NotifierTimeout time.Duration `mapstructure:"notifier_timeout"`
	// RemoteConnectTimeout/RemoteReadTimeout configure the remote-REST
	// backend's resty client (defaults: 30s/300s).
	RemoteConnectTimeout time.Duration `mapstructure:"remote_connect_timeout"`
	RemoteReadTimeout    time.Duration `mapstructure:"remote_read_timeout"`
	// ParallelJobLimit bounds the pool used to launch multiple jobs of
	// one workflow concurrently.
	ParallelJobLimit int `mapstructure:"parallel_job_limit"`

	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns Config populated with GeneFlow's documented defaults.
func Default() Config {
	return Config{
		RunPollDelay:         5 * time.Second,
		DefaultThrottleLimit: 0,
		StoreDSN:             filepath.Join(defaultHome(), "geneflow.db"),
		NotifierTimeout:      10 * time.Second,
		RemoteConnectTimeout: 30 * time.Second,
		RemoteReadTimeout:    300 * time.Second,
		ParallelJobLimit:     5,
		LogFormat:            "text",
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geneflow"
	}
	return filepath.Join(home, ".geneflow")
}

// Load reads configPath (or ~/.geneflow/config.yaml if empty) layered
// over GeneFlow's defaults and any GENEFLOW_-prefixed environment
// variables.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("GENEFLOW")
	v.AutomaticEnv()
	for _, key := range []string{"run_poll_delay", "default_throttle_limit", "store_dsn", "notifier_timeout",
		"remote_connect_timeout", "remote_read_timeout", "parallel_job_limit", "debug", "log_format"} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(defaultHome())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// WorkflowSearchPath reads GENEFLOW_PATH directly via os.Getenv: a
// colon-separated search path for workflow packages, a lookup variable
// rather than a viper-managed setting.
func WorkflowSearchPath() []string {
	raw := os.Getenv("GENEFLOW_PATH")
	if raw == "" {
		return nil
	}
	return filepath.SplitList(raw)
}
