package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/alert-bridge/internal/api/http"
	"github.com/spec-kit/alert-bridge/internal/api/http/handlers"
	"github.com/spec-kit/alert-bridge/internal/config"
	"github.com/spec-kit/alert-bridge/internal/correlation"
	"github.com/spec-kit/alert-bridge/internal/domain"
	"github.com/spec-kit/alert-bridge/internal/events"
	"github.com/spec-kit/alert-bridge/internal/normalize"
	"github.com/spec-kit/alert-bridge/internal/observability"
	"github.com/spec-kit/alert-bridge/internal/persistence"
	"github.com/spec-kit/alert-bridge/internal/service"
	"github.com/spec-kit/alert-bridge/internal/tickets"
)

type stubPrimary struct {
	createCalls int
	noteCalls   int
}

func (s *stubPrimary) CreateIssue(_ context.Context, title, body string, _ []string) (*tickets.Issue, error) {
	s.createCalls++
	return &tickets.Issue{IID: s.createCalls, Title: title, Description: body, WebURL: "https://git/issues/1"}, nil
}

func (s *stubPrimary) GetIssue(context.Context, int) (*tickets.Issue, error) {
	return nil, errors.New("not found")
}

func (s *stubPrimary) UpdateIssueBody(context.Context, int, string) error { return nil }

func (s *stubPrimary) AddIssueNote(context.Context, int, string) error {
	s.noteCalls++
	return nil
}

type stubSecondary struct {
	nextID      int
	tasks       map[string]*tickets.Task
	createCalls int
}

func newStubSecondary() *stubSecondary {
	return &stubSecondary{nextID: 100, tasks: map[string]*tickets.Task{}}
}

func (s *stubSecondary) CreateTask(_ context.Context, title, body string) (*tickets.Task, error) {
	s.createCalls++
	id := fmt.Sprintf("%d", s.nextID)
	s.nextID++
	task := &tickets.Task{ID: id, Title: title, Body: body}
	s.tasks[id] = task
	return task, nil
}

func (s *stubSecondary) GetTask(_ context.Context, id string) (*tickets.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	return task, nil
}

func (s *stubSecondary) UpdateTaskBody(_ context.Context, id, body string) error {
	if task, ok := s.tasks[id]; ok {
		task.Body = body
	}
	return nil
}

func (s *stubSecondary) AddComment(context.Context, string, string) error { return nil }

type testApp struct {
	app          *fiber.App
	correlations *correlation.MemoryStore
	primary      *stubPrimary
	secondary    *stubSecondary
}

func newTestApp(t *testing.T, secret string) *testApp {
	t.Helper()
	cfg := config.Config{
		Bridge: config.BridgeConfig{
			CommentOnRepeatUpdate: true,
			TriggerTag:            "ai-to-fix",
			PrimaryFrameLimit:     8,
			SecondaryFrameLimit:   4,
		},
		GitLab: config.GitLabConfig{Labels: []string{"alert-bridge"}},
	}

	correlations := correlation.NewMemoryStore()
	primary := &stubPrimary{}
	secondary := newStubSecondary()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	lifecycle := service.NewLifecycleService(cfg, service.LifecycleDependencies{
		Correlations: correlations,
		Primary:      primary,
		Secondary:    secondary,
		Summarizer:   summarizerStub{},
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	escalation := service.NewEscalationService(cfg, lifecycle, secondary, logger)
	audit := service.NewAuditService(nil, dispatcher, metrics, logger, false)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler("test", "dev", nil, &persistence.Redis{}),
		Events:        handlers.NewEventsHandler(normalize.New(cfg.Bridge.PrimaryFrameLimit), lifecycle),
		Tasks:         handlers.NewTasksHandler(escalation),
		Deliveries:    handlers.NewDeliveriesHandler(audit),
		WebhookSecret: secret,
	})

	return &testApp{app: app, correlations: correlations, primary: primary, secondary: secondary}
}

type summarizerStub struct{}

func (summarizerStub) Summarize(context.Context, domain.NormalizedEvent) (string, error) {
	return "", nil
}

func (ta *testApp) post(t *testing.T, path, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

const eventPayload = `{"project": "api", "environment": "prod", "issue": {"id": "42", "title": "NullPointer"}}`

func TestReceiveEventCreatesThenUpdates(t *testing.T) {
	ta := newTestApp(t, "")

	resp, body := ta.post(t, "/webhooks/events", eventPayload, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "created", body)
	require.Equal(t, 1, ta.secondary.createCalls)

	resp, body = ta.post(t, "/webhooks/events", eventPayload, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "updated", body)
	require.Equal(t, 1, ta.secondary.createCalls)

	record, err := ta.correlations.Get(context.Background(), "api:prod:42")
	require.NoError(t, err)
	require.Equal(t, 2, record.Count)
}

func TestReceiveEventPing(t *testing.T) {
	ta := newTestApp(t, "")

	resp, body := ta.post(t, "/webhooks/events", `{"action": "installed", "installation": {}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)
	require.Equal(t, 0, ta.secondary.createCalls)
	require.Equal(t, 0, ta.correlations.Len())
}

func TestReceiveEventMissingIssueID(t *testing.T) {
	ta := newTestApp(t, "")

	resp, body := ta.post(t, "/webhooks/events", `{"project": "api", "environment": "prod", "event": {"title": "orphan"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)
	require.Equal(t, 0, ta.correlations.Len())
}

func TestReceiveEventMalformedJSON(t *testing.T) {
	ta := newTestApp(t, "")

	resp, _ := ta.post(t, "/webhooks/events", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0, ta.correlations.Len())
}

func TestWebhookTokenCheck(t *testing.T) {
	ta := newTestApp(t, "s3cret")

	resp, _ := ta.post(t, "/webhooks/events", eventPayload, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ta.post(t, "/webhooks/events", eventPayload, map[string]string{"X-Webhook-Token": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ta.post(t, "/webhooks/events", eventPayload, map[string]string{"X-Webhook-Token": "s3cret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}
