package cmd

import (
	"encoding/json"
	"os"

	"github.com/autodevhq/autodev/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON, with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(redactSecrets(*cfg))
	},
}

// redactSecrets masks forge tokens and the webhook HMAC secret so a shared
// terminal (tmux, screen share) never echoes a live credential.
func redactSecrets(cfg config.Config) config.Config {
	cfg.Forge.GitHub = append([]config.GitHubConfig(nil), cfg.Forge.GitHub...)
	for i := range cfg.Forge.GitHub {
		cfg.Forge.GitHub[i].Token = mask(cfg.Forge.GitHub[i].Token)
	}
	cfg.Forge.GitLab = append([]config.GitLabConfig(nil), cfg.Forge.GitLab...)
	for i := range cfg.Forge.GitLab {
		cfg.Forge.GitLab[i].Token = mask(cfg.Forge.GitLab[i].Token)
	}
	cfg.Notify.Webhook.Secret = mask(cfg.Notify.Webhook.Secret)
	return cfg
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
