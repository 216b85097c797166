package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/autodevhq/autodev/internal/snapshot"
	"github.com/spf13/cobra"
)

var queueKindFilter string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the live work queues",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items currently in flight or waiting across every queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, home, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := snapshot.Read(home)
		if err != nil {
			return userError("no status available (is the daemon running?): %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tREPO\t#\tPHASE\tTITLE")
		shown := 0
		for _, it := range st.ActiveItems {
			if queueKindFilter != "" && it.Kind != queueKindFilter {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.Kind, it.RepoName, it.Number, it.Phase, it.Title)
			shown++
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if shown == 0 {
			fmt.Println("queue is empty")
		}
		return nil
	},
}

func init() {
	queueListCmd.Flags().StringVar(&queueKindFilter, "kind", "", "filter by queue kind (issue, pr, merge)")
	queueCmd.AddCommand(queueListCmd)
}
