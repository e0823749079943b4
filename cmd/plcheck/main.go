package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"plcheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "plcheck",
	Short: "Static analyzer for PL/pgSQL routines",
	Long:  `plcheck analyzes stored routines from a host-exported bundle: embedded SQL, control flow, record shapes and more`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum diagnostics per routine (0=default limit)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color persistent flag against the output TTY.
func useColor(cmd *cobra.Command) bool {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
