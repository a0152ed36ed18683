// Package summarize produces an optional human-readable incident summary.
// The call is strictly best-effort: any failure yields an empty summary and
// the ticket is rendered without the AI Summary section.
package summarize

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
	"github.com/spec-kit/alert-bridge/internal/domain"
)

// Summarizer returns markdown describing an event, or nothing.
type Summarizer interface {
	Summarize(ctx context.Context, ev domain.NormalizedEvent) (string, error)
}

// Disabled is the no-op summarizer used when no endpoint is configured.
type Disabled struct{}

// Summarize always returns an empty summary.
func (Disabled) Summarize(context.Context, domain.NormalizedEvent) (string, error) {
	return "", nil
}

// ChatSummarizer calls an OpenAI-compatible chat-completions endpoint.
type ChatSummarizer struct {
	cfg  config.SummaryConfig
	http *http.Client
}

// New returns the configured summarizer, or Disabled when APIURL is empty.
func New(cfg config.SummaryConfig) Summarizer {
	if cfg.APIURL == "" {
		return Disabled{}
	}
	return &ChatSummarizer{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for a short incident summary in markdown.
func (s *ChatSummarizer) Summarize(ctx context.Context, ev domain.NormalizedEvent) (string, error) {
	raw, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You summarize production error reports for engineers. Reply with short markdown: likely cause, affected area, suggested first step."},
			{Role: "user", Content: prompt(ev)},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary endpoint responded %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func prompt(ev domain.NormalizedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error %q in project %s (%s).\n", ev.Title, ev.Project, ev.Environment)
	if ev.Culprit != "" {
		fmt.Fprintf(&b, "Culprit: %s\n", ev.Culprit)
	}
	if ev.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", ev.Message)
	}
	if len(ev.Frames) > 0 {
		b.WriteString("Most recent frames:\n")
		for _, frame := range ev.Frames {
			fmt.Fprintf(&b, "  %s:%d %s\n", frame.Module, frame.Line, frame.Function)
		}
	}
	return b.String()
}
