// Package cmd wires the cobra command tree for the autodev CLI.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "autodev",
	Short: "Autonomous development orchestrator",
	Long: `autodev watches registered repositories on a code forge and drives
issues and pull requests through automated analyze/implement/review/improve/
merge lifecycles by delegating the creative work to an external agent
process.

Get started:
  autodev repo add <url>   Register a repository
  autodev start            Run the orchestrator daemon in the foreground
  autodev status           Print the current work snapshot
  autodev dashboard        Launch the terminal UI`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from cmd/autodev/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $AUTODEV_HOME/config.json)")
	rootCmd.Version = Version

	rootCmd.AddCommand(
		startCmd,
		stopCmd,
		restartCmd,
		statusCmd,
		dashboardCmd,
		repoCmd,
		queueCmd,
		configCmd,
		logsCmd,
	)
}

// userErr wraps an error that should exit 1 (bad args, duplicate repo,
// daemon already running/not running) rather than 2 (internal error).
type userErr struct{ err error }

func (e userErr) Error() string { return e.err.Error() }
func (e userErr) Unwrap() error { return e.err }

func userError(format string, args ...interface{}) error {
	return userErr{err: fmt.Errorf(format, args...)}
}

func exitCodeFor(err error) int {
	var u userErr
	if errors.As(err, &u) {
		return 1
	}
	return 2
}
