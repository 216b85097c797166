package forge

import (
	"context"
	"fmt"
	"strings"

	"github.com/autodevhq/autodev/internal/config"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubClient implements Client for GitHub and GitHub Enterprise.
type GitHubClient struct {
	client *gogithub.Client
	token  string
	host   string
}

// NewGitHub creates a GitHubClient from the given configuration.
func NewGitHub(cfg config.GitHubConfig) (*GitHubClient, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := gogithub.NewClient(tc)

	if cfg.Host != "" && cfg.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", cfg.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", cfg.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}

	return &GitHubClient{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitHubClient) Name() string { return "github" }
func (g *GitHubClient) AuthToken() string { return g.token }

func splitRepo(repoFullName string) (owner, name string) {
	owner, name, ok := strings.Cut(repoFullName, "/")
	if !ok {
		return repoFullName, ""
	}
	return owner, name
}

func (g *GitHubClient) ListIssues(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error) {
	owner, name := splitRepo(repoFullName)
	perPage := opts.PerPage
	if perPage == 0 {
		perPage = 100
	}
	ghOpts := &gogithub.IssueListByRepoOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: perPage, Page: opts.Page},
	}
	if opts.Label != "" {
		ghOpts.Labels = []string{opts.Label}
	}

	issues, _, err := g.client.Issues.ListByRepo(ctx, owner, name, ghOpts)
	if err != nil {
		return nil, fmt.Errorf("listing issues on %s: %w", repoFullName, err)
	}

	entities := make([]Entity, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue // PRs surface via ListPulls.
		}
		entities = append(entities, convertIssue(iss))
	}
	return entities, nil
}

func (g *GitHubClient) ListPulls(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error) {
	owner, name := splitRepo(repoFullName)
	perPage := opts.PerPage
	if perPage == 0 {
		perPage = 100
	}
	prs, _, err := g.client.PullRequests.List(ctx, owner, name, &gogithub.PullRequestListOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: perPage, Page: opts.Page},
	})
	if err != nil {
		return nil, fmt.Errorf("listing pulls on %s: %w", repoFullName, err)
	}

	entities := make([]Entity, 0, len(prs))
	for _, pr := range prs {
		if opts.Label != "" && !hasLabel(pr.Labels, opts.Label) {
			continue
		}
		entities = append(entities, convertPR(pr))
	}
	return entities, nil
}

func (g *GitHubClient) AddLabel(ctx context.Context, repoFullName string, number int, label string) error {
	owner, name := splitRepo(repoFullName)
	_, _, err := g.client.Issues.AddLabelsToIssue(ctx, owner, name, number, []string{label})
	if err != nil {
		return fmt.Errorf("adding label %q to %s#%d: %w", label, repoFullName, number, err)
	}
	return nil
}

func (g *GitHubClient) RemoveLabel(ctx context.Context, repoFullName string, number int, label string) error {
	owner, name := splitRepo(repoFullName)
	_, err := g.client.Issues.RemoveLabelForIssue(ctx, owner, name, number, label)
	if err != nil {
		return fmt.Errorf("removing label %q from %s#%d: %w", label, repoFullName, number, err)
	}
	return nil
}

func (g *GitHubClient) CreateComment(ctx context.Context, repoFullName string, number int, body string) error {
	owner, name := splitRepo(repoFullName)
	_, _, err := g.client.Issues.CreateComment(ctx, owner, name, number, &gogithub.IssueComment{Body: &body})
	if err != nil {
		return fmt.Errorf("commenting on %s#%d: %w", repoFullName, number, err)
	}
	return nil
}

func (g *GitHubClient) ListComments(ctx context.Context, repoFullName string, number int) ([]string, error) {
	owner, name := splitRepo(repoFullName)
	comments, _, err := g.client.Issues.ListComments(ctx, owner, name, number, &gogithub.IssueListCommentsOptions{
		Sort:      gogithub.Ptr("created"),
		Direction: gogithub.Ptr("asc"),
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments on %s#%d: %w", repoFullName, number, err)
	}
	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		bodies = append(bodies, c.GetBody())
	}
	return bodies, nil
}

func (g *GitHubClient) CreateIssue(ctx context.Context, repoFullName, title, body string) error {
	owner, name := splitRepo(repoFullName)
	_, _, err := g.client.Issues.Create(ctx, owner, name, &gogithub.IssueRequest{Title: &title, Body: &body})
	if err != nil {
		return fmt.Errorf("creating issue on %s: %w", repoFullName, err)
	}
	return nil
}

func (g *GitHubClient) GetEntity(ctx context.Context, repoFullName string, number int, isPR bool) (*Entity, error) {
	owner, name := splitRepo(repoFullName)
	if isPR {
		pr, _, err := g.client.PullRequests.Get(ctx, owner, name, number)
		if err != nil {
			return nil, fmt.Errorf("getting PR %s#%d: %w", repoFullName, number, err)
		}
		e := convertPR(pr)
		return &e, nil
	}
	iss, _, err := g.client.Issues.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("getting issue %s#%d: %w", repoFullName, number, err)
	}
	e := convertIssue(iss)
	return &e, nil
}

func (g *GitHubClient) Merge(ctx context.Context, repoFullName string, number int) error {
	owner, name := splitRepo(repoFullName)
	_, _, err := g.client.PullRequests.Merge(ctx, owner, name, number, "", nil)
	if err != nil {
		return fmt.Errorf("merging PR %s#%d: %w", repoFullName, number, err)
	}
	return nil
}

func convertIssue(iss *gogithub.Issue) Entity {
	return Entity{
		Number:    iss.GetNumber(),
		Title:     iss.GetTitle(),
		Body:      iss.GetBody(),
		State:     iss.GetState(),
		Author:    iss.GetUser().GetLogin(),
		Labels:    labelNames(iss.Labels),
		UpdatedAt: iss.GetUpdatedAt().Time,
		IsPR:      false,
	}
}

func convertPR(pr *gogithub.PullRequest) Entity {
	return Entity{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		State:      pr.GetState(),
		Author:     pr.GetUser().GetLogin(),
		Labels:     labelNames(pr.Labels),
		UpdatedAt:  pr.GetUpdatedAt().Time,
		IsPR:       true,
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
	}
}

func labelNames(labels []*gogithub.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

func hasLabel(labels []*gogithub.Label, want string) bool {
	for _, l := range labels {
		if l.GetName() == want {
			return true
		}
	}
	return false
}
