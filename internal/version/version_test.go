package version_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"plcheck/internal/version"
)

func TestCollectDefaultsToDev(t *testing.T) {
	orig := version.Version
	defer func() { version.Version = orig }()

	version.Version = "   "
	if got := version.Collect().Version; got != "dev" {
		t.Fatalf("Collect().Version = %q, want %q", got, "dev")
	}
}

func TestCollectTrimsMetadata(t *testing.T) {
	origCommit, origDate := version.GitCommit, version.BuildDate
	defer func() {
		version.GitCommit, version.BuildDate = origCommit, origDate
	}()

	version.GitCommit = "  abc123 "
	version.BuildDate = "2026-08-23T10:30:00Z\n"
	info := version.Collect()
	if info.GitCommit != "abc123" {
		t.Fatalf("GitCommit = %q", info.GitCommit)
	}
	if info.BuildDate != "2026-08-23T10:30:00Z" {
		t.Fatalf("BuildDate = %q", info.BuildDate)
	}
}

func TestWritePrettyBannerOnly(t *testing.T) {
	var buf bytes.Buffer
	version.WritePretty(&buf, version.Info{Version: "1.2.3"}, version.RenderOptions{})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	want := "plcheck 1.2.3 - " + version.Tagline
	if lines[0] != want {
		t.Fatalf("banner = %q, want %q", lines[0], want)
	}
}

func TestWritePrettyMetadataLines(t *testing.T) {
	var buf bytes.Buffer
	info := version.Info{Version: "1.2.3", GitCommit: "abc123"}
	opts := version.RenderOptions{ShowHash: true, ShowMessage: true, ShowDate: true}
	version.WritePretty(&buf, info, opts)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[1] != "commit: abc123" {
		t.Fatalf("commit line = %q", lines[1])
	}
	// unset fields render as unknown instead of disappearing
	if lines[2] != "message: unknown" || lines[3] != "built: unknown" {
		t.Fatalf("metadata lines = %q %q", lines[2], lines[3])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	info := version.Info{Version: "1.2.3", GitCommit: "abc123", BuildDate: "2026-08-23"}
	opts := version.RenderOptions{ShowHash: true}
	if err := version.WriteJSON(&buf, info, opts); err != nil {
		t.Fatal(err)
	}
	var doc map[string]string
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if doc["tool"] != "plcheck" || doc["version"] != "1.2.3" {
		t.Fatalf("doc = %v", doc)
	}
	if doc["tagline"] != version.Tagline {
		t.Fatalf("tagline = %q", doc["tagline"])
	}
	if doc["git_commit"] != "abc123" {
		t.Fatalf("git_commit = %q", doc["git_commit"])
	}
	if _, present := doc["build_date"]; present {
		t.Fatal("build_date must be omitted when not requested")
	}
}
