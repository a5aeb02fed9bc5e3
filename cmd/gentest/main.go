// Command gentest turns a shell command into a repeatable reference test.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/deixis/gentest"
	"github.com/deixis/gentest/internal/report"
)

// sessionCache bounds the in-memory sessions kept in front of the disk store.
const sessionCache = 5

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("gentest:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gentest",
		Short: "Turn a shell command into a repeatable reference test.",
		Long: `gentest runs a shell command, saves the files it writes (and optionally its
stdout and stderr) as references, and generates a Go test that re-runs the
command and compares its outputs against them. Content that varies between
runs or depends on the machine is excluded from the comparison.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd(), newMCPCmd(), newVersionCmd())
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gentest.Version)
		},
	}
}

// newStore returns the session store shared by the CLI and the MCP server,
// so sessions generated from the command line can be inspected over MCP.
func newStore() report.Store {
	dir := ""
	if cache, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(cache, "gentest", "sessions")
	}
	return report.NewLRUStore(sessionCache, report.NewDiskStore(dir))
}
