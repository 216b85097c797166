package forge

import (
	"context"
	"fmt"
	"time"

	"github.com/autodevhq/autodev/internal/config"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabClient implements Client for GitLab.com and self-managed instances.
type GitLabClient struct {
	client *gitlab.Client
	token  string
	host   string
}

// NewGitLab creates a GitLabClient from the given configuration.
func NewGitLab(cfg config.GitLabConfig) (*GitLabClient, error) {
	opts := []gitlab.ClientOptionFunc{}
	if cfg.Host != "" && cfg.Host != "gitlab.com" {
		base := fmt.Sprintf("https://%s/api/v4/", cfg.Host)
		opts = append(opts, gitlab.WithBaseURL(base))
	}

	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}

	return &GitLabClient{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitLabClient) Name() string { return "gitlab" }
func (g *GitLabClient) AuthToken() string { return g.token }

func (g *GitLabClient) ListIssues(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error) {
	perPage := opts.PerPage
	if perPage == 0 {
		perPage = 100
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	state := "opened"
	listOpts := &gitlab.ListProjectIssuesOptions{
		State:       &state,
		ListOptions: gitlab.ListOptions{PerPage: int64(perPage), Page: int64(page)},
	}
	if opts.Label != "" {
		listOpts.Labels = (*gitlab.LabelOptions)(&[]string{opts.Label})
	}

	issues, _, err := g.client.Issues.ListProjectIssues(repoFullName, listOpts)
	if err != nil {
		return nil, fmt.Errorf("listing issues on %s: %w", repoFullName, err)
	}

	entities := make([]Entity, 0, len(issues))
	for _, iss := range issues {
		entities = append(entities, convertGitLabIssue(iss))
	}
	return entities, nil
}

func (g *GitLabClient) ListPulls(ctx context.Context, repoFullName string, opts ListOptions) ([]Entity, error) {
	perPage := opts.PerPage
	if perPage == 0 {
		perPage = 100
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	state := "opened"
	listOpts := &gitlab.ListProjectMergeRequestsOptions{
		State:       &state,
		ListOptions: gitlab.ListOptions{PerPage: int64(perPage), Page: int64(page)},
	}
	if opts.Label != "" {
		listOpts.Labels = (*gitlab.LabelOptions)(&[]string{opts.Label})
	}

	mrs, _, err := g.client.MergeRequests.ListProjectMergeRequests(repoFullName, listOpts)
	if err != nil {
		return nil, fmt.Errorf("listing merge requests on %s: %w", repoFullName, err)
	}

	entities := make([]Entity, 0, len(mrs))
	for _, mr := range mrs {
		entities = append(entities, convertGitLabMR(mr))
	}
	return entities, nil
}

func (g *GitLabClient) AddLabel(ctx context.Context, repoFullName string, number int, label string) error {
	return g.mutateLabels(repoFullName, number, gitlab.LabelOptions{label}, nil)
}

func (g *GitLabClient) RemoveLabel(ctx context.Context, repoFullName string, number int, label string) error {
	return g.mutateLabels(repoFullName, number, nil, gitlab.LabelOptions{label})
}

// mutateLabels dispatches to the issue or merge request update endpoint,
// trying issues first. GitLab's UpdateIssue 404s cleanly when number refers
// to an MR, so the fallback is safe.
func (g *GitLabClient) mutateLabels(repoFullName string, number int, add, remove gitlab.LabelOptions) error {
	_, _, err := g.client.Issues.UpdateIssue(repoFullName, int64(number), &gitlab.UpdateIssueOptions{
		AddLabels:    &add,
		RemoveLabels: &remove,
	})
	if err == nil {
		return nil
	}
	_, _, mrErr := g.client.MergeRequests.UpdateMergeRequest(repoFullName, int64(number), &gitlab.UpdateMergeRequestOptions{
		AddLabels:    &add,
		RemoveLabels: &remove,
	})
	if mrErr != nil {
		return fmt.Errorf("updating labels on %s!%d: issue error %v, MR error %w", repoFullName, number, err, mrErr)
	}
	return nil
}

func (g *GitLabClient) CreateComment(ctx context.Context, repoFullName string, number int, body string) error {
	if _, _, err := g.client.Notes.CreateIssueNote(repoFullName, int64(number), &gitlab.CreateIssueNoteOptions{Body: &body}); err == nil {
		return nil
	}
	if _, _, err := g.client.Notes.CreateMergeRequestNote(repoFullName, int64(number), &gitlab.CreateMergeRequestNoteOptions{Body: &body}); err != nil {
		return fmt.Errorf("commenting on %s!%d: %w", repoFullName, number, err)
	}
	return nil
}

func (g *GitLabClient) ListComments(ctx context.Context, repoFullName string, number int) ([]string, error) {
	notes, _, err := g.client.Notes.ListIssueNotes(repoFullName, int64(number), &gitlab.ListIssueNotesOptions{})
	if err != nil {
		notes2, _, mrErr := g.client.Notes.ListMergeRequestNotes(repoFullName, int64(number), &gitlab.ListMergeRequestNotesOptions{})
		if mrErr != nil {
			return nil, fmt.Errorf("listing notes on %s!%d: issue error %v, MR error %w", repoFullName, number, err, mrErr)
		}
		bodies := make([]string, 0, len(notes2))
		for _, n := range notes2 {
			bodies = append(bodies, n.Body)
		}
		return bodies, nil
	}
	bodies := make([]string, 0, len(notes))
	for _, n := range notes {
		bodies = append(bodies, n.Body)
	}
	return bodies, nil
}

func (g *GitLabClient) CreateIssue(ctx context.Context, repoFullName, title, body string) error {
	_, _, err := g.client.Issues.CreateIssue(repoFullName, &gitlab.CreateIssueOptions{
		Title:       &title,
		Description: &body,
	})
	if err != nil {
		return fmt.Errorf("creating issue on %s: %w", repoFullName, err)
	}
	return nil
}

func (g *GitLabClient) GetEntity(ctx context.Context, repoFullName string, number int, isPR bool) (*Entity, error) {
	if isPR {
		mr, _, err := g.client.MergeRequests.GetMergeRequest(repoFullName, int64(number), nil)
		if err != nil {
			return nil, fmt.Errorf("getting MR %s!%d: %w", repoFullName, number, err)
		}
		e := convertGitLabMR(&mr.BasicMergeRequest)
		return &e, nil
	}
	iss, _, err := g.client.Issues.GetIssue(repoFullName, int64(number))
	if err != nil {
		return nil, fmt.Errorf("getting issue %s#%d: %w", repoFullName, number, err)
	}
	e := convertGitLabIssue(iss)
	return &e, nil
}

func (g *GitLabClient) Merge(ctx context.Context, repoFullName string, number int) error {
	_, _, err := g.client.MergeRequests.AcceptMergeRequest(repoFullName, int64(number), &gitlab.AcceptMergeRequestOptions{})
	if err != nil {
		return fmt.Errorf("merging MR %s!%d: %w", repoFullName, number, err)
	}
	return nil
}

func convertGitLabIssue(iss *gitlab.Issue) Entity {
	author := ""
	if iss.Author != nil {
		author = iss.Author.Username
	}
	var updated time.Time
	if iss.UpdatedAt != nil {
		updated = *iss.UpdatedAt
	}
	return Entity{
		Number:    int(iss.IID),
		Title:     iss.Title,
		Body:      iss.Description,
		State:     iss.State,
		Author:    author,
		Labels:    []string(iss.Labels),
		UpdatedAt: updated,
		IsPR:      false,
	}
}

func convertGitLabMR(mr *gitlab.BasicMergeRequest) Entity {
	author := ""
	if mr.Author != nil {
		author = mr.Author.Username
	}
	var updated time.Time
	if mr.UpdatedAt != nil {
		updated = *mr.UpdatedAt
	}
	return Entity{
		Number:     int(mr.IID),
		Title:      mr.Title,
		Body:       mr.Description,
		State:      mr.State,
		Author:     author,
		Labels:     []string(mr.Labels),
		UpdatedAt:  updated,
		IsPR:       true,
		HeadBranch: mr.SourceBranch,
		BaseBranch: mr.TargetBranch,
	}
}
