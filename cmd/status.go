package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/autodevhq/autodev/internal/snapshot"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current work snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, home, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := snapshot.Read(home)
		if err != nil {
			return userError("no status available (is the daemon running?): %v", err)
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Printf("updated_at: %s  uptime: %ds\n", st.UpdatedAt, st.UptimeSecs)
		fmt.Printf("counters: wip=%d done=%d skip=%d failed=%d\n\n",
			st.Counters.WIP, st.Counters.Done, st.Counters.Skip, st.Counters.Failed)

		if len(st.ActiveItems) == 0 {
			fmt.Println("no active items")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tREPO\t#\tPHASE\tTITLE")
		for _, it := range st.ActiveItems {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.Kind, it.RepoName, it.Number, it.Phase, it.Title)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw status JSON")
}
