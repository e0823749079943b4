// Package config loads process-wide defaults from plcheck.toml. Flags
// override the file; the file overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"plcheck/internal/checker"
)

// FileName is the manifest searched for in the working directory and its
// parents.
const FileName = "plcheck.toml"

// Warnings toggles the optional diagnostic categories.
type Warnings struct {
	Other         bool `toml:"other"`
	Extra         bool `toml:"extra"`
	Performance   bool `toml:"performance"`
	Security      bool `toml:"security"`
	Compatibility bool `toml:"compatibility"`
}

// Config is the decoded manifest.
type Config struct {
	Mode        string   `toml:"mode"`
	Format      string   `toml:"format"`
	FatalErrors bool     `toml:"fatal_errors"`
	CollectDeps bool     `toml:"collect_deps"`
	MaxIssues   int      `toml:"max_issues"`
	Warnings    Warnings `toml:"warnings"`
	Sanitizers  []string `toml:"sanitizers"`
}

// Default returns the built-in configuration: on-demand mode, text
// output, the always-on category only.
func Default() Config {
	return Config{
		Mode:   "by_function",
		Format: "text",
		Warnings: Warnings{
			Other:       true,
			Performance: true,
			Security:    true,
		},
	}
}

// Load decodes one manifest file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return cfg, fmt.Errorf("load %s: unknown key %q", path, undec[0].String())
	}
	if _, err := checker.ParseMode(cfg.Mode); err != nil {
		return cfg, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Discover walks from dir upward looking for the manifest; defaults when
// none exists.
func Discover(dir string) (Config, string, error) {
	cur := dir
	for {
		candidate := filepath.Join(cur, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate)
			return cfg, candidate, err
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Default(), "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return Default(), "", nil
		}
		cur = parent
	}
}

// Options translates the manifest into one run's checker options.
func (c Config) Options() checker.Options {
	return checker.Options{
		FatalErrors:           c.FatalErrors,
		OtherWarnings:         c.Warnings.Other,
		ExtraWarnings:         c.Warnings.Extra,
		PerformanceWarnings:   c.Warnings.Performance,
		SecurityWarnings:      c.Warnings.Security,
		CompatibilityWarnings: c.Warnings.Compatibility,
		Format:                c.Format,
		CollectDeps:           c.CollectDeps,
		Sanitizers:            c.Sanitizers,
		MaxDiagnostics:        c.MaxIssues,
	}
}

// Mode parses the manifest's mode name.
func (c Config) CheckMode() (checker.Mode, error) {
	return checker.ParseMode(c.Mode)
}
