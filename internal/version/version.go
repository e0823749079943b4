// Package version carries the build metadata injected at link time and
// renders the version banner for the CLI.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// These variables can be overridden at build time via -ldflags.
var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Tagline is the one-line motto printed next to the version.
const Tagline = "find the bugs before the planner does"

const tool = "plcheck"

// Info is a cleaned snapshot of the linker-injected metadata.
type Info struct {
	Version    string
	GitCommit  string
	GitMessage string
	BuildDate  string
}

// Collect trims the raw variables; an unset Version becomes "dev".
func Collect() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Version:    v,
		GitCommit:  strings.TrimSpace(GitCommit),
		GitMessage: strings.TrimSpace(GitMessage),
		BuildDate:  strings.TrimSpace(BuildDate),
	}
}

// RenderOptions select which metadata lines the banner includes.
type RenderOptions struct {
	ShowHash    bool
	ShowMessage bool
	ShowDate    bool
}

// WritePretty prints the banner line plus the requested metadata.
func WritePretty(w io.Writer, info Info, opts RenderOptions) {
	fmt.Fprintf(w, "%s %s - %s\n", tool, info.Version, Tagline)
	if opts.ShowHash {
		fmt.Fprintf(w, "commit: %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.ShowMessage {
		fmt.Fprintf(w, "message: %s\n", valueOrUnknown(info.GitMessage))
	}
	if opts.ShowDate {
		fmt.Fprintf(w, "built: %s\n", valueOrUnknown(info.BuildDate))
	}
}

type payload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	Tagline    string `json:"tagline"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

// WriteJSON prints the banner as an indented JSON document. Metadata
// fields the options exclude are omitted entirely.
func WriteJSON(w io.Writer, info Info, opts RenderOptions) error {
	p := payload{
		Tool:    tool,
		Version: info.Version,
		Tagline: Tagline,
	}
	if opts.ShowHash {
		p.GitCommit = info.GitCommit
	}
	if opts.ShowMessage {
		p.GitMessage = info.GitMessage
	}
	if opts.ShowDate {
		p.BuildDate = info.BuildDate
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func valueOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
