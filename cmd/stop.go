package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/autodevhq/autodev/internal/daemon"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running daemon to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, home, err := loadConfig()
		if err != nil {
			return err
		}
		return stopDaemon(home)
	},
}

// stopDaemon sends SIGTERM to the recorded pid and waits briefly for the
// pid file to disappear, mirroring the daemon's own graceful-shutdown path.
func stopDaemon(home string) error {
	pid := daemon.ReadPID(home)
	if pid == 0 {
		return userError("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return userError("daemon pid %d not found: %v", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return userError("daemon pid %d not running: %v", pid, err)
	}

	deadline := time.Now().Add(70 * time.Second)
	for time.Now().Before(deadline) {
		if daemon.ReadPID(home) == 0 {
			fmt.Println("daemon stopped")
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not exit within the shutdown window")
}
