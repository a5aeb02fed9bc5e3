// Package config loads the optional .gentest YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the repository root.
const FileName = ".gentest"

// Default values for generation.
const (
	DefaultIterations      = 2
	DefaultMaxFiles        = 10000
	DefaultMaxDateVariants = 5
	DefaultShell           = "sh"
)

// Config holds the parsed .gentest configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version            int      `yaml:"version"`
	RawIterations      *int     `yaml:"iterations"`
	RawMaxFiles        int      `yaml:"max_files"`
	RawMaxDateVariants int      `yaml:"max_date_variants"`
	CheckStdout        bool     `yaml:"check_stdout"`
	CheckStderr        bool     `yaml:"check_stderr"`
	NonZeroExit        bool     `yaml:"nonzero_exit"`
	RelativePaths      bool     `yaml:"relative_paths"`
	RawShell           string   `yaml:"shell"`
	RawTimeout         string   `yaml:"timeout"` // e.g. "30s"; empty means no timeout
	Ignore             []string `yaml:"ignore"`  // extra names skipped in reference directories
	Package            string   `yaml:"package"` // package clause for generated scripts
}

// Iterations returns how many times the command runs. Zero is honoured:
// it disables generation.
func (c *Config) Iterations() int {
	if c.RawIterations != nil && *c.RawIterations >= 0 {
		return *c.RawIterations
	}
	return DefaultIterations
}

// MaxFiles returns the snapshot size limit or the default.
func (c *Config) MaxFiles() int {
	if c.RawMaxFiles > 0 {
		return c.RawMaxFiles
	}
	return DefaultMaxFiles
}

// MaxDateVariants returns the literal date limit or the default.
func (c *Config) MaxDateVariants() int {
	if c.RawMaxDateVariants > 0 {
		return c.RawMaxDateVariants
	}
	return DefaultMaxDateVariants
}

// Shell returns the shell used to run commands.
func (c *Config) Shell() string {
	if c.RawShell != "" {
		return c.RawShell
	}
	return DefaultShell
}

// Timeout returns the per-run timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing go.mod; falls back to workspace
}

// Load reads the .gentest file from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for go.mod. If no .gentest file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No go.mod found; use workspace as root.
		root = workspace
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if cfg.RawIterations != nil && *cfg.RawIterations < 0 {
		return nil, fmt.Errorf("parsing %s: iterations must not be negative", FileName)
	}
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// findRepoRoot walks upward from dir looking for a directory containing go.mod.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
