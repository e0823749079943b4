package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plcheck/internal/version"
)

var (
	versionFormat      string
	versionShowHash    bool
	versionShowMessage bool
	versionShowDate    bool
	versionShowFull    bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowMessage, "message", false, "include git commit message")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show plcheck build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := version.RenderOptions{
			ShowHash:    versionShowHash || versionShowFull,
			ShowMessage: versionShowMessage || versionShowFull,
			ShowDate:    versionShowDate || versionShowFull,
		}
		info := version.Collect()
		switch strings.ToLower(versionFormat) {
		case "json":
			return version.WriteJSON(cmd.OutOrStdout(), info, opts)
		case "pretty":
			version.WritePretty(cmd.OutOrStdout(), info, opts)
			return nil
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
	},
}
