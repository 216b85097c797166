package config

import "time"

// Config is the root configuration structure for autodev.
// Serialised to $AUTODEV_HOME/config.json.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Forge    ForgeConfig    `mapstructure:"forge"    json:"forge"`
	Daemon   DaemonConfig   `mapstructure:"daemon"   json:"daemon"`
	Notify   NotifyConfig   `mapstructure:"notify"   json:"notify"`
}

// DatabaseConfig controls the durable store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"`
}

// ForgeConfig holds credentials for each supported code-forge.
type ForgeConfig struct {
	GitHub []GitHubConfig `mapstructure:"github" json:"github"`
	GitLab []GitLabConfig `mapstructure:"gitlab" json:"gitlab"`
}

// GitHubConfig holds credentials for a single GitHub instance.
type GitHubConfig struct {
	Token string `mapstructure:"token" json:"token"`
	// Host allows GitHub Enterprise (e.g. github.mycompany.com).
	Host string `mapstructure:"host"  json:"host"`
}

// GitLabConfig holds credentials for a single GitLab instance.
type GitLabConfig struct {
	Token string `mapstructure:"token" json:"token"`
	Host  string `mapstructure:"host"  json:"host"`
}

// DaemonConfig controls the orchestrator tick loop and task runner.
type DaemonConfig struct {
	// PollInterval is the tick period (default 10s).
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	// ScanInterval is how often a given repo is re-scanned (should_scan).
	ScanInterval time.Duration `mapstructure:"scan_interval" json:"scan_interval"`
	// Concurrency is the global cap on simultaneous agent invocations (default 3).
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
	// PerRepoIssueCap and PerRepoPRCap bound in-flight tasks per repo and kind.
	PerRepoIssueCap int `mapstructure:"per_repo_issue_cap" json:"per_repo_issue_cap"`
	PerRepoPRCap    int `mapstructure:"per_repo_pr_cap"    json:"per_repo_pr_cap"`
	// DrainTimeout bounds how long shutdown waits for in-flight tasks (default 60s).
	DrainTimeout time.Duration `mapstructure:"drain_timeout" json:"drain_timeout"`
	// IterationCeiling caps the Review/Improve/ReReview loop per PR.
	IterationCeiling int `mapstructure:"iteration_ceiling" json:"iteration_ceiling"`
	// CursorStuckThreshold marks a scan cursor for reset at startup when its
	// last_scan_wall_time predates it.
	CursorStuckThreshold time.Duration `mapstructure:"cursor_stuck_threshold" json:"cursor_stuck_threshold"`
	// AutoMergeEnabled gates whether scan_merges ever runs.
	AutoMergeEnabled bool `mapstructure:"auto_merge_enabled" json:"auto_merge_enabled"`
	// IgnoreAuthors lists bot/principal logins the Scanner drops (filter 2).
	IgnoreAuthors []string `mapstructure:"ignore_authors" json:"ignore_authors"`
	// AllowLabels, if non-empty, restricts issue intake to entities carrying
	// at least one of these labels (filter 3).
	AllowLabels []string `mapstructure:"allow_labels" json:"allow_labels"`
	// AgentCommand is the subprocess the agent launcher invokes, e.g. "claude".
	AgentCommand string `mapstructure:"agent_command" json:"agent_command"`
}

// NotifyConfig controls outbound operational notifications.
type NotifyConfig struct {
	Slack   SlackNotifyConfig   `mapstructure:"slack"   json:"slack"`
	Webhook WebhookNotifyConfig `mapstructure:"webhook" json:"webhook"`
}

// SlackNotifyConfig holds the Slack incoming webhook URL.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

// WebhookNotifyConfig holds generic HTTP webhook settings.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"secret"` // HMAC-SHA256 signing key // #nosec G101 -- config field, not a hardcoded credential
}
