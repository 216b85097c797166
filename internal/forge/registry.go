package forge

import (
	"fmt"
	"strings"

	"github.com/autodevhq/autodev/internal/config"
)

// Resolver resolves the forge Client responsible for a repository. Every
// package upstream of the concrete provider implementations (scan,
// recovery, task) depends on this interface rather than *Registry directly,
// so tests can substitute a fake without touching real credentials.
type Resolver interface {
	ClientFor(cloneURL, hostOverride string) (Client, error)
}

// Registry resolves the forge Client for a given repository host, caching
// one client per configured account. It implements Resolver.
type Registry struct {
	github map[string]*GitHubClient
	gitlab map[string]*GitLabClient
}

// NewRegistry builds every configured forge client up front so a bad
// credential fails at startup rather than mid-tick.
func NewRegistry(cfg config.ForgeConfig) (*Registry, error) {
	r := &Registry{
		github: make(map[string]*GitHubClient),
		gitlab: make(map[string]*GitLabClient),
	}
	for _, gh := range cfg.GitHub {
		client, err := NewGitHub(gh)
		if err != nil {
			return nil, fmt.Errorf("configuring github client for host %q: %w", hostOrDefault(gh.Host, "github.com"), err)
		}
		r.github[hostOrDefault(gh.Host, "github.com")] = client
	}
	for _, gl := range cfg.GitLab {
		client, err := NewGitLab(gl)
		if err != nil {
			return nil, fmt.Errorf("configuring gitlab client for host %q: %w", hostOrDefault(gl.Host, "gitlab.com"), err)
		}
		r.gitlab[hostOrDefault(gl.Host, "gitlab.com")] = client
	}
	return r, nil
}

// ClientFor resolves the Client for a repo's clone URL, using the host
// embedded in the URL and falling back to provider detection when no exact
// host match is configured.
func (r *Registry) ClientFor(cloneURL, hostOverride string) (Client, error) {
	host := hostOverride
	if host == "" {
		host = hostFromURL(cloneURL)
	}

	if c, ok := r.github[host]; ok {
		return c, nil
	}
	if c, ok := r.gitlab[host]; ok {
		return c, nil
	}

	switch DetectProvider(cloneURL) {
	case "gitlab":
		for _, c := range r.gitlab {
			return c, nil
		}
	default:
		for _, c := range r.github {
			return c, nil
		}
	}
	return nil, fmt.Errorf("forge: no client configured for host %q", host)
}

func hostOrDefault(host, def string) string {
	if host == "" {
		return def
	}
	return host
}

func hostFromURL(cloneURL string) string {
	u := strings.TrimPrefix(cloneURL, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "git@")
	if idx := strings.IndexAny(u, "/:"); idx != -1 {
		return u[:idx]
	}
	return u
}
