package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/alert-bridge/internal/tickets"
)

func TestReceiveTaskChangeEscalates(t *testing.T) {
	ta := newTestApp(t, "")

	// The event path stores the task whose body embeds the grouping key.
	resp, _ := ta.post(t, "/webhooks/events", eventPayload, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	record, err := ta.correlations.Get(context.Background(), "api:prod:42")
	require.NoError(t, err)

	payload := `{"task": {"id": "` + record.TaskID + `", "tags": ["ai-to-fix"]}}`
	resp, body := ta.post(t, "/webhooks/tasks", payload, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "created", body)
	require.Equal(t, 1, ta.primary.createCalls)

	record, err = ta.correlations.Get(context.Background(), "api:prod:42")
	require.NoError(t, err)
	require.NotZero(t, record.IssueIID)

	// Re-delivering the same notification updates rather than duplicating.
	resp, body = ta.post(t, "/webhooks/tasks", payload, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "updated", body)
	require.Equal(t, 1, ta.primary.createCalls)
}

func TestReceiveTaskChangeWithoutTriggerTag(t *testing.T) {
	ta := newTestApp(t, "")
	ta.secondary.tasks["99"] = &tickets.Task{ID: "99", Title: "x [prod]", Body: "GroupKey: `api:prod:42`"}

	resp, body := ta.post(t, "/webhooks/tasks", `{"task": {"id": "99", "tags": ["backend"]}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ignored", body)
	require.Equal(t, 0, ta.primary.createCalls)
}

func TestReceiveTaskChangeNoRecoverableKey(t *testing.T) {
	ta := newTestApp(t, "")
	ta.secondary.tasks["7"] = &tickets.Task{ID: "7", Title: "x", Body: "no token"}

	resp, body := ta.post(t, "/webhooks/tasks", `{"task": {"id": "7", "tags": ["ai-to-fix"]}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ignored", body)
}

func TestReceiveTaskChangeMalformed(t *testing.T) {
	ta := newTestApp(t, "")

	resp, _ := ta.post(t, "/webhooks/tasks", `{"task": {"tags": ["ai-to-fix"]}}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.post(t, "/webhooks/tasks", `{oops`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
