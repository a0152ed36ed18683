package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/alert-bridge/internal/config"
	apperrors "github.com/spec-kit/alert-bridge/pkg/util"
)

// TrackerStore is a JSON REST client for the secondary task tracker,
// authenticated with a static token.
type TrackerStore struct {
	baseURL   string
	token     string
	projectID string
	http      *http.Client
}

// NewTrackerStore builds the client from configuration.
func NewTrackerStore(cfg config.TrackerConfig) (*TrackerStore, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.NewConfigError("TRACKER_BASE_URL not configured")
	}
	return &TrackerStore{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type trackerTask struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Body      string      `json:"description"`
	Tags      []string    `json:"tags"`
	ProjectID string      `json:"project_id,omitempty"`
}

type trackerEnvelope struct {
	Task trackerTask `json:"task"`
}

// CreateTask opens a new task in the configured project.
func (t *TrackerStore) CreateTask(ctx context.Context, title, body string) (*Task, error) {
	payload := trackerTask{Title: title, Body: body, ProjectID: t.projectID}
	var out trackerEnvelope
	if err := t.do(ctx, http.MethodPost, "/tasks", payload, &out); err != nil {
		return nil, err
	}
	return fromTrackerTask(out.Task), nil
}

// GetTask fetches a task by id.
func (t *TrackerStore) GetTask(ctx context.Context, id string) (*Task, error) {
	var out trackerEnvelope
	if err := t.do(ctx, http.MethodGet, "/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	task := fromTrackerTask(out.Task)
	if task.ID == "" {
		task.ID = id
	}
	return task, nil
}

// UpdateTaskBody replaces the task description.
func (t *TrackerStore) UpdateTaskBody(ctx context.Context, id, body string) error {
	return t.do(ctx, http.MethodPatch, "/tasks/"+id, map[string]string{"description": body}, nil)
}

// AddComment posts a comment on the task.
func (t *TrackerStore) AddComment(ctx context.Context, id, text string) error {
	return t.do(ctx, http.MethodPost, "/tasks/"+id+"/comments", map[string]string{"text": text}, nil)
}

func (t *TrackerStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Token", t.token)

	resp, err := t.http.Do(req)
	if err != nil {
		return apperrors.NewBadGateway("tracker "+method+" "+path, 0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewBadGateway("tracker "+method+" "+path, resp.StatusCode, string(raw),
			fmt.Errorf("tracker responded %d", resp.StatusCode))
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("tracker decode %s: %w", path, err)
		}
	}
	return nil
}

func fromTrackerTask(t trackerTask) *Task {
	return &Task{
		ID:    t.ID.String(),
		Title: t.Title,
		Body:  t.Body,
		Tags:  t.Tags,
	}
}
