package cmd

import (
	"github.com/autodevhq/autodev/internal/daemon"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the orchestrator daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, home, err := loadConfig()
		if err != nil {
			return err
		}

		d, err := daemon.New(home, cfg)
		if err != nil {
			return err
		}

		return d.Run(cmd.Context())
	},
}
