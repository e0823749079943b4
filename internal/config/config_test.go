package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plcheck/internal/checker"
	"plcheck/internal/config"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Mode != "by_function" || cfg.Format != "text" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !cfg.Warnings.Other || !cfg.Warnings.Performance || !cfg.Warnings.Security {
		t.Fatalf("default categories = %+v", cfg.Warnings)
	}
	if cfg.Warnings.Extra || cfg.Warnings.Compatibility {
		t.Fatalf("opt-in categories must default off: %+v", cfg.Warnings)
	}
	mode, err := cfg.CheckMode()
	if err != nil || mode != checker.ModeOnDemand {
		t.Fatalf("mode = %v %v", mode, err)
	}
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
mode = "every_start"
format = "json"
fatal_errors = true
max_issues = 50
sanitizers = ["quote_literal", "my_escape"]

[warnings]
extra = true
security = false
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "every_start" || cfg.Format != "json" || !cfg.FatalErrors {
		t.Fatalf("config = %+v", cfg)
	}
	if !cfg.Warnings.Extra || cfg.Warnings.Security {
		t.Fatalf("warnings = %+v", cfg.Warnings)
	}
	// untouched keys keep their defaults
	if !cfg.Warnings.Other {
		t.Fatalf("warnings = %+v", cfg.Warnings)
	}

	opts := cfg.Options()
	if !opts.FatalErrors || !opts.ExtraWarnings || opts.SecurityWarnings {
		t.Fatalf("options = %+v", opts)
	}
	if opts.MaxDiagnostics != 50 || len(opts.Sanitizers) != 2 {
		t.Fatalf("options = %+v", opts)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "mode = \"disabled\"\ntypo_key = 1\n")
	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "mode = \"sometimes\"\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("bad mode must be rejected")
	}
}

func TestDiscoverWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "mode = \"fresh_start\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, path, err := config.Discover(nested)
	if err != nil {
		t.Fatal(err)
	}
	if path == "" || cfg.Mode != "fresh_start" {
		t.Fatalf("discover = %q %+v", path, cfg)
	}
}

func TestDiscoverDefaultsWhenMissing(t *testing.T) {
	cfg, path, err := config.Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if path != "" || cfg.Mode != "by_function" {
		t.Fatalf("discover = %q %+v", path, cfg)
	}
}
