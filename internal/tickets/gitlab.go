package tickets

import (
	"context"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/spec-kit/alert-bridge/internal/config"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// GitLabStore drives one project's issue tracker as the primary store.
type GitLabStore struct {
	client  *gitlab.Client
	project string
}

// NewGitLabStore builds the client from configuration. The project path is
// the mandatory downstream target; requests fail with a config error before
// reaching here when it is missing.
func NewGitLabStore(cfg config.GitLabConfig) (*GitLabStore, error) {
	if cfg.Project == "" {
		return nil, apperrors.NewConfigError("GITLAB_PROJECT not configured")
	}
	var opts []gitlab.ClientOptionFunc
	if cfg.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(cfg.BaseURL))
	}
	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, err
	}
	return &GitLabStore{client: client, project: cfg.Project}, nil
}

// CreateIssue opens a new issue with the given labels.
func (g *GitLabStore) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	opt := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(title),
		Description: gitlab.Ptr(body),
	}
	if len(labels) > 0 {
		labelOpts := gitlab.LabelOptions(labels)
		opt.Labels = &labelOpts
	}
	issue, resp, err := g.client.Issues.CreateIssue(g.project, opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, downstreamError("gitlab create issue", resp, err)
	}
	return fromGitLabIssue(issue), nil
}

// GetIssue fetches an issue by project-scoped iid.
func (g *GitLabStore) GetIssue(ctx context.Context, iid int) (*Issue, error) {
	issue, resp, err := g.client.Issues.GetIssue(g.project, iid, gitlab.WithContext(ctx))
	if err != nil {
		return nil, downstreamError("gitlab get issue", resp, err)
	}
	return fromGitLabIssue(issue), nil
}

// UpdateIssueBody replaces the issue description.
func (g *GitLabStore) UpdateIssueBody(ctx context.Context, iid int, body string) error {
	opt := &gitlab.UpdateIssueOptions{Description: gitlab.Ptr(body)}
	_, resp, err := g.client.Issues.UpdateIssue(g.project, iid, opt, gitlab.WithContext(ctx))
	if err != nil {
		return downstreamError("gitlab update issue", resp, err)
	}
	return nil
}

// AddIssueNote posts a comment on the issue.
func (g *GitLabStore) AddIssueNote(ctx context.Context, iid int, text string) error {
	opt := &gitlab.CreateIssueNoteOptions{Body: gitlab.Ptr(text)}
	_, resp, err := g.client.Notes.CreateIssueNote(g.project, iid, opt, gitlab.WithContext(ctx))
	if err != nil {
		return downstreamError("gitlab create note", resp, err)
	}
	return nil
}

func fromGitLabIssue(issue *gitlab.Issue) *Issue {
	return &Issue{
		IID:         issue.IID,
		Title:       issue.Title,
		Description: issue.Description,
		WebURL:      issue.WebURL,
	}
}

func downstreamError(target string, resp *gitlab.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return apperrors.NewBadGateway(target, status, err.Error(), err)
}
