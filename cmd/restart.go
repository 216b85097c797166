package cmd

import (
	"github.com/autodevhq/autodev/internal/daemon"
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop the running daemon, then start a new one in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, home, err := loadConfig()
		if err != nil {
			return err
		}

		if daemon.ReadPID(home) != 0 {
			if err := stopDaemon(home); err != nil {
				return err
			}
		}

		d, err := daemon.New(home, cfg)
		if err != nil {
			return err
		}
		return d.Run(cmd.Context())
	},
}
