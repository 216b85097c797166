package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage registered repositories",
}

var repoAddScanCron string

// repoAddCmd registers a repository. Given a URL argument it runs
// non-interactively; given none, it walks the user through a huh wizard.
var repoAddCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Register a repository for autodev to watch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := ""
		if len(args) == 1 {
			url = args[0]
		}
		scanCron := repoAddScanCron

		if url == "" {
			if err := runRepoAddWizard(&url, &scanCron); err != nil {
				return err
			}
		}
		if strings.TrimSpace(url) == "" {
			return userError("a repository URL is required")
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeFn, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		fullName := fullNameFromURL(url)

		ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()

		repo, err := st.AddRepo(ctx, url, fullName)
		if err != nil {
			return userError("adding repository: %v", err)
		}
		if scanCron != "" {
			if err := st.SetScanCron(ctx, repo.FullName, scanCron); err != nil {
				return userError("setting scan cron: %v", err)
			}
		}
		fmt.Printf("registered %s (id=%d)\n", repo.FullName, repo.ID)
		return nil
	},
}

// runRepoAddWizard prompts interactively for the fields repoAddCmd needs when
// invoked with no arguments.
func runRepoAddWizard(url, scanCron *string) error {
	fmt.Println(headerStyle.Render("Register a repository"))
	fmt.Println(dimStyle.Render("autodev will scan this repository's issues and pull requests on its regular tick."))
	fmt.Println()

	var useCron bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Repository URL").
				Description("HTTPS or SSH clone URL, e.g. https://github.com/owner/repo").
				Value(url).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a URL is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Override the default scan interval with a cron schedule?").
				Value(&useCron),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}

	if useCron {
		cronForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Cron expression").
					Description("Standard 5-field cron, e.g. \"0 * * * *\" for hourly").
					Value(scanCron),
			),
		)
		if err := cronForm.Run(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
	}

	fmt.Println(successStyle.Render("✓ Ready to register"))
	return nil
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeFn, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()

		repos, err := st.AllRepos(ctx)
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			fmt.Println("no repositories registered")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFULL NAME\tENABLED\tSCAN CRON\tURL")
		for _, r := range repos {
			cron := r.ScanCron
			if cron == "" {
				cron = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", r.ID, r.FullName, r.Enabled, cron, r.URL)
		}
		return w.Flush()
	},
}

var repoConfigScanCron string

var repoConfigCmd = &cobra.Command{
	Use:   "config <full-name>",
	Short: "Override a repository's scan schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("scan-cron") {
			return userError("nothing to change: pass --scan-cron (empty string clears the override)")
		}
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeFn, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()

		if err := st.SetScanCron(ctx, args[0], repoConfigScanCron); err != nil {
			return userError("%v", err)
		}
		fmt.Printf("updated %s\n", args[0])
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <full-name>",
	Short: "Deregister a repository and forget its scan/work-log history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeFn, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()

		if err := st.RemoveRepo(ctx, args[0]); err != nil {
			return userError("removing repository: %v", err)
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

func fullNameFromURL(url string) string {
	u := strings.TrimSuffix(url, ".git")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "git@")
	u = strings.Replace(u, ":", "/", 1)
	parts := strings.Split(u, "/")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return u
}

func init() {
	repoAddCmd.Flags().StringVar(&repoAddScanCron, "scan-cron", "", "cron expression overriding the fixed scan interval")
	repoConfigCmd.Flags().StringVar(&repoConfigScanCron, "scan-cron", "", "cron expression overriding the fixed scan interval, empty to clear")
	repoCmd.AddCommand(repoAddCmd, repoListCmd, repoRemoveCmd, repoConfigCmd)
}
