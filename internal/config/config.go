package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "config.json"
	DefaultDBFile     = "autodev.db"
)

// Home returns $AUTODEV_HOME, defaulting to $HOME/.autodev. Every persisted
// artifact (store, pid file, status file, logs, workspaces) lives under it.
func Home() (string, error) {
	if h := os.Getenv("AUTODEV_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".autodev"), nil
}

// Load reads the config file and returns a populated Config; when the file
// is absent the defaults are used and no file is written. The configPath flag may override the default
// location. Environment variables under the AUTODEV_ prefix override file
// values.
func Load(configPath string) (*Config, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("AUTODEV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(home)
	}

	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
		// No config yet; defaults carry the Config below.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	expandPaths(&cfg, home)
	return &cfg, nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	home, err := Home()
	if err != nil {
		return err
	}

	if configPath == "" {
		configPath = filepath.Join(home, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}

	return os.WriteFile(configPath, data, 0o600)
}

// ConfigPath returns the effective config file path.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigFile), nil
}

// EnsureDir creates the AUTODEV_HOME tree (logs/, workspaces/) if absent.
func EnsureDir() error {
	home, err := Home()
	if err != nil {
		return err
	}
	dirs := []string{
		home,
		filepath.Join(home, "logs"),
		filepath.Join(home, "workspaces"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	return nil
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("database.dsn", "")

	v.SetDefault("daemon.poll_interval", 10*time.Second)
	v.SetDefault("daemon.scan_interval", 5*time.Minute)
	v.SetDefault("daemon.concurrency", 3)
	v.SetDefault("daemon.per_repo_issue_cap", 2)
	v.SetDefault("daemon.per_repo_pr_cap", 2)
	v.SetDefault("daemon.drain_timeout", 60*time.Second)
	v.SetDefault("daemon.iteration_ceiling", 5)
	v.SetDefault("daemon.cursor_stuck_threshold", 24*time.Hour)
	v.SetDefault("daemon.auto_merge_enabled", false)
	v.SetDefault("daemon.ignore_authors", []string{})
	v.SetDefault("daemon.allow_labels", []string{})
	v.SetDefault("daemon.agent_command", "claude")
}

// expandPaths resolves ~ in configured paths.
func expandPaths(cfg *Config, home string) {
	homeDir, _ := os.UserHomeDir()
	cfg.Database.Path = expandHome(cfg.Database.Path, homeDir)
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(home, DefaultDBFile)
	}
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
