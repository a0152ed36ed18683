// Package tickets holds the clients for the two downstream ticket stores.
// Which physical system plays the primary or secondary role is a deployment
// choice; the lifecycle controller only sees these interfaces.
package tickets

import "context"

// Issue is a primary-store ticket.
type Issue struct {
	IID         int
	Title       string
	Description string
	WebURL      string
}

// Task is a secondary-store ticket.
type Task struct {
	ID    string
	Title string
	Body  string
	Tags  []string
}

// PrimaryStore is the issue tracker escalations land in.
type PrimaryStore interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error)
	GetIssue(ctx context.Context, iid int) (*Issue, error)
	UpdateIssueBody(ctx context.Context, iid int, body string) error
	AddIssueNote(ctx context.Context, iid int, text string) error
}

// SecondaryStore is the task tracker events land in first.
type SecondaryStore interface {
	CreateTask(ctx context.Context, title, body string) (*Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTaskBody(ctx context.Context, id, body string) error
	AddComment(ctx context.Context, id, text string) error
}

// UpdateStrategy selects how a store applies a repeat occurrence: append a
// short note, or re-render the body patching only the Status section.
type UpdateStrategy int

const (
	StrategyComment UpdateStrategy = iota
	StrategyPatchBody
)

// ParseStrategy maps a config value to a strategy, falling back when the
// value is unknown.
func ParseStrategy(raw string, fallback UpdateStrategy) UpdateStrategy {
	switch raw {
	case "comment":
		return StrategyComment
	case "patch":
		return StrategyPatchBody
	}
	return fallback
}
