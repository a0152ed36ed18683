package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

var (
	t0 = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	t1 = time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
)

func sampleInput() TicketInput {
	return TicketInput{
		Key:         "api:prod:42",
		Title:       "NullPointer",
		Project:     "api",
		Environment: "prod",
		Level:       "error",
		Culprit:     "app.checkout",
		Message:     "boom",
		Permalink:   "https://monitor/issues/42",
		Summary:     "Likely a nil deref in checkout.\n\nStart with the cart handler.",
		Frames: []domain.Frame{
			{Module: "app/views.py", Line: 120, Function: "checkout"},
			{Module: "app/cart.py", Line: 55, Function: "total"},
		},
		Occurrences: 1,
		FirstSeen:   t0,
		LastSeen:    t0,
	}
}

func TestBodyGroupingKeyRoundTrip(t *testing.T) {
	body := Body(sampleInput())
	key, ok := ExtractGroupingKey(body)
	require.True(t, ok)
	require.Equal(t, domain.GroupingKey("api:prod:42"), key)
}

func TestBodyPermalinkRoundTrip(t *testing.T) {
	body := Body(sampleInput())
	require.Equal(t, "https://monitor/issues/42", ExtractPermalink(body))
}

func TestBodySummaryRoundTrip(t *testing.T) {
	in := sampleInput()
	body := Body(in)
	require.Equal(t, in.Summary, ExtractSummary(body))
}

func TestBodySummarySectionOmittedWhenEmpty(t *testing.T) {
	in := sampleInput()
	in.Summary = ""
	body := Body(in)
	require.NotContains(t, body, "## AI Summary")
	require.Empty(t, ExtractSummary(body))
}

func TestReconcileStatusPatchesOnlyStatusFields(t *testing.T) {
	body := Body(sampleInput())
	manual := strings.Replace(body, "## Context", "Investigating, see thread.\n\n## Context", 1)

	patched, ok := ReconcileStatus(manual, 2, t0, t1)
	require.True(t, ok)
	require.Contains(t, patched, "- Occurrences: 2")
	require.Contains(t, patched, "- First seen: 2026-08-30T10:00:00Z")
	require.Contains(t, patched, "- Last seen: 2026-08-30T11:00:00Z")
	require.Contains(t, patched, "Investigating, see thread.", "manual edits survive")

	// Everything outside the three machine-owned lines is byte-identical.
	expected := statusBlockRe.ReplaceAllLiteralString(manual, statusLines(2, t0, t1))
	require.Equal(t, expected, patched)
	require.Equal(t,
		statusBlockRe.ReplaceAllLiteralString(manual, ""),
		statusBlockRe.ReplaceAllLiteralString(patched, ""))
}

func TestReconcileStatusMissingBlockFallsBack(t *testing.T) {
	_, ok := ReconcileStatus("a human rewrote everything", 2, t0, t1)
	require.False(t, ok)
}

func TestReconcileStatusIdempotentShape(t *testing.T) {
	body := Body(sampleInput())
	once, ok := ReconcileStatus(body, 2, t0, t1)
	require.True(t, ok)
	twice, ok := ReconcileStatus(once, 3, t0, t1)
	require.True(t, ok)
	require.Contains(t, twice, "- Occurrences: 3")
	require.NotContains(t, twice, "- Occurrences: 2")
}

func TestTaskTitleRoundTrip(t *testing.T) {
	title, env := ParseTaskTitle(TaskTitle("NullPointer in checkout", "prod"))
	require.Equal(t, "NullPointer in checkout", title)
	require.Equal(t, "prod", env)
}

func TestParseTaskTitleWithoutEnvironmentSuffix(t *testing.T) {
	title, env := ParseTaskTitle("a plain title")
	require.Equal(t, "a plain title", title)
	require.Empty(t, env)
}

func TestExtractGroupingKeyAbsent(t *testing.T) {
	_, ok := ExtractGroupingKey("no token here")
	require.False(t, ok)
}

func TestOccurrenceNote(t *testing.T) {
	note := OccurrenceNote(3, t1, "https://monitor/issues/42")
	require.Contains(t, note, "#3")
	require.Contains(t, note, "2026-08-30T11:00:00Z")
	require.Contains(t, note, "https://monitor/issues/42")

	bare := OccurrenceNote(2, t1, "")
	require.NotContains(t, bare, "Source")
}

func TestBodyFramesRendered(t *testing.T) {
	body := Body(sampleInput())
	require.Contains(t, body, "## Frames")
	require.Contains(t, body, "`app/views.py:120` in `checkout`")
}
