// Package config holds the harness settings read from raycheck.yaml and
// overridden by command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"raycheck/utils"
)

// DefaultFile is read when no explicit config path is given and it exists
const DefaultFile = "raycheck.yaml"

// Config holds all settings of one harness run
type Config struct {
	Exec   string `yaml:"exec"`
	RefBin string `yaml:"refbin"`
	Scenes string `yaml:"scenes"`
	Out    string `yaml:"out"`
	// RefCache defaults to <out>/refcache
	RefCache string `yaml:"refcache"`
	JSON     string `yaml:"json"`
	Cubemap  string `yaml:"cubemap"`

	// Time limits are in seconds
	TimeLimit          int `yaml:"time_limit"`
	ReferenceTimeLimit int `yaml:"reference_time_limit"`

	WindowSize int  `yaml:"window_size"`
	Jobs       int  `yaml:"jobs"`
	NoCompare  bool `yaml:"no_compare"`

	RegressionCutoffs string `yaml:"regression_cutoffs"`
	SuppressMemo      bool   `yaml:"suppress_memo"`

	// Database defaults to <out>/history.db
	Database string `yaml:"database"`
	History  bool   `yaml:"history"`

	Debug    bool   `yaml:"debug"`
	LogFile  string `yaml:"log_file"`
	Progress bool   `yaml:"progress"`
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() *Config {
	return &Config{
		Exec:              filepath.Join("build", "bin", "ray"),
		RefBin:            "ray-solution",
		Scenes:            filepath.Join("assets", "scenes"),
		Out:               "raycheck.out",
		TimeLimit:         180,
		WindowSize:        7,
		Jobs:              1,
		RegressionCutoffs: "cutoffs.csv",
		History:           true,
		LogFile:           "raycheck_debug.log",
	}
}

// Load reads path over the defaults. An empty path loads DefaultFile if it
// exists and returns the defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no run could use
func (c *Config) Validate() error {
	if c.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive, got %d", c.TimeLimit)
	}
	if c.ReferenceTimeLimit < 0 {
		return fmt.Errorf("reference time limit must not be negative, got %d", c.ReferenceTimeLimit)
	}
	if c.WindowSize < 1 || c.WindowSize%2 == 0 {
		return fmt.Errorf("window size must be a positive odd number, got %d", c.WindowSize)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Scenes == "" || c.Out == "" {
		return errors.New("scenes and out directories must be set")
	}
	return nil
}

// RefCacheDir returns the reference cache directory
func (c *Config) RefCacheDir() string {
	if c.RefCache != "" {
		return c.RefCache
	}
	return filepath.Join(c.Out, "refcache")
}

// DatabasePath returns the history database location
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return utils.GetDefaultDatabasePath(c.Out)
}

// CandidateTimeout returns the candidate render limit
func (c *Config) CandidateTimeout() time.Duration {
	return time.Duration(c.TimeLimit) * time.Second
}

// ReferenceTimeout returns the reference render limit, falling back to the
// candidate limit when unset
func (c *Config) ReferenceTimeout() time.Duration {
	if c.ReferenceTimeLimit > 0 {
		return time.Duration(c.ReferenceTimeLimit) * time.Second
	}
	return c.CandidateTimeout()
}
