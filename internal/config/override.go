package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// RepoOverride is the subset of a repository's registry row a workspace can
// override locally, read from a YAML file committed alongside the checkout.
// Fields left zero leave the registry row untouched.
type RepoOverride struct {
	ScanCron     string `yaml:"scan_cron"`
	AgentCommand string `yaml:"agent_command"`
}

// RepoOverrideFileName is the file LoadRepoOverride looks for in a
// workspace's root directory.
const RepoOverrideFileName = ".develop-workflow.yaml"

// LoadRepoOverride reads dir/.develop-workflow.yaml, returning a zero-value
// RepoOverride (not an error) when the file does not exist.
func LoadRepoOverride(dir string) (*RepoOverride, error) {
	path := dir + string(os.PathSeparator) + RepoOverrideFileName
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RepoOverride{}, nil
		}
		return nil, fmt.Errorf("reading repo override %s: %w", path, err)
	}

	var o RepoOverride
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("parsing repo override %s: %w", path, err)
	}
	o.ScanCron = strings.TrimSpace(o.ScanCron)
	o.AgentCommand = strings.TrimSpace(o.AgentCommand)
	return &o, nil
}

// SanitizeRepoDirName maps a "owner/repo" full name to a filesystem-safe
// workspace directory component.
func SanitizeRepoDirName(fullName string) string {
	return strings.ReplaceAll(fullName, "/", "-")
}
