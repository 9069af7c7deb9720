package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config maps the contents of config.yaml.
type Config struct {
	ReachabilityTimeoutMS int     `yaml:"reachability_timeout_ms" json:"reachability_timeout_ms"`
	TransferTimeoutS      int     `yaml:"transfer_timeout_s" json:"transfer_timeout_s"`
	ProbeConcurrency      int     `yaml:"probe_concurrency" json:"probe_concurrency"`
	ProbeDelayMS          int     `yaml:"probe_delay_ms" json:"probe_delay_ms"`
	TopN                  int     `yaml:"top_n" json:"top_n"`
	RateLimitMB           float64 `yaml:"rate_limit_mb" json:"rate_limit_mb"`
	ReferencePath         string  `yaml:"reference_path" json:"reference_path"`
	RepoPathTemplate      string  `yaml:"repo_path_template" json:"repo_path_template"`
	OutputDir             string  `yaml:"output_dir" json:"output_dir"`
}

const (
	DefaultConcurrency = 5
	DefaultTopN        = 10
)

// LoadConfig loads and parses the YAML config file, applies environment
// overrides and corrects values that would break the run.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.Normalize()
	return &cfg, nil
}

// applyEnv layers MIRRORRANK_* environment variables (optionally from a .env
// file next to the working directory) over the file values.
func (c *Config) applyEnv() {
	_ = godotenv.Load()
	if v := getenv("MIRRORRANK_OUTPUT_DIR", ""); v != "" {
		c.OutputDir = v
	}
	if v := getenv("MIRRORRANK_TOP_N", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TopN = n
		}
	}
	if v := getenv("MIRRORRANK_REFERENCE_PATH", ""); v != "" {
		c.ReferencePath = v
	}
}

// Normalize replaces values that would deadlock or hang the run with
// defaults, warning about each correction.
func (c *Config) Normalize() {
	if c.ProbeConcurrency <= 0 {
		log.Printf("warning: probe_concurrency=%d would deadlock the worker pool, using default %d", c.ProbeConcurrency, DefaultConcurrency)
		c.ProbeConcurrency = DefaultConcurrency
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.ReachabilityTimeoutMS <= 0 {
		c.ReachabilityTimeoutMS = 2000
	}
	if c.TransferTimeoutS <= 0 {
		c.TransferTimeoutS = 10
	}
	if c.ProbeDelayMS < 0 {
		c.ProbeDelayMS = 0
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
}

// ReachabilityTimeout returns the reachability check budget as a duration.
func (c *Config) ReachabilityTimeout() time.Duration {
	return time.Duration(c.ReachabilityTimeoutMS) * time.Millisecond
}

// TransferTimeout returns the timed transfer budget as a duration.
func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.TransferTimeoutS) * time.Second
}

// ProbeDelay returns the politeness pause inserted between probe dispatches.
func (c *Config) ProbeDelay() time.Duration {
	return time.Duration(c.ProbeDelayMS) * time.Millisecond
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
