package cmd

import (
	"github.com/autodevhq/autodev/internal/tui"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, home, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeFn, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		return tui.NewApp(home, st).Run()
	},
}
