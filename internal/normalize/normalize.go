package normalize

import (
	"strconv"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

// PingPredicate classifies a payload as a connectivity test ping, for which
// normalization is skipped entirely.
type PingPredicate func(payload map[string]any) bool

// DefaultPing treats a payload with at most two top-level fields and none of
// the known issue/event/data carriers as a test ping.
func DefaultPing(payload map[string]any) bool {
	if len(payload) > 2 {
		return false
	}
	for _, carrier := range []string{"issue", "event", "data"} {
		if _, ok := payload[carrier]; ok {
			return false
		}
	}
	return true
}

// fieldPaths is an ordered list of candidate locations for one event field.
// Paths are probed in priority order and the first non-empty value wins.
type fieldPaths [][]string

var (
	projectPaths = fieldPaths{
		{"data", "issue", "project", "slug"},
		{"data", "issue", "project"},
		{"issue", "project", "slug"},
		{"issue", "project"},
		{"data", "event", "project"},
		{"event", "project"},
		{"project_slug"},
		{"project"},
	}
	environmentPaths = fieldPaths{
		{"data", "event", "environment"},
		{"event", "environment"},
		{"data", "issue", "environment"},
		{"issue", "environment"},
		{"environment"},
	}
	issueIDPaths = fieldPaths{
		{"data", "issue", "id"},
		{"issue", "id"},
		{"data", "event", "issue_id"},
		{"event", "issue_id"},
		{"issue_id"},
	}
	titlePaths = fieldPaths{
		{"data", "issue", "title"},
		{"issue", "title"},
		{"data", "event", "title"},
		{"event", "title"},
		{"title"},
	}
	permalinkPaths = fieldPaths{
		{"data", "issue", "permalink"},
		{"issue", "permalink"},
		{"data", "event", "web_url"},
		{"event", "web_url"},
		{"data", "event", "url"},
		{"event", "url"},
		{"url"},
	}
	levelPaths = fieldPaths{
		{"data", "event", "level"},
		{"event", "level"},
		{"data", "issue", "level"},
		{"issue", "level"},
		{"level"},
	}
	culpritPaths = fieldPaths{
		{"data", "issue", "culprit"},
		{"issue", "culprit"},
		{"data", "event", "culprit"},
		{"event", "culprit"},
		{"culprit"},
	}
	messagePaths = fieldPaths{
		{"data", "event", "message"},
		{"event", "message"},
		{"data", "event", "logentry", "formatted"},
		{"event", "logentry", "formatted"},
		{"message"},
	}
	exceptionPaths = fieldPaths{
		{"data", "event", "exception", "values"},
		{"event", "exception", "values"},
		{"data", "issue", "exception", "values"},
		{"exception", "values"},
	}
)

// Normalizer extracts canonical events from arbitrarily-shaped payloads.
// FrameLimit bounds how many of the innermost frames are kept; Ping is the
// test-ping classifier and may be replaced.
type Normalizer struct {
	FrameLimit int
	Ping       PingPredicate
}

// New builds a Normalizer keeping the last frameLimit stack frames.
func New(frameLimit int) *Normalizer {
	return &Normalizer{FrameLimit: frameLimit, Ping: DefaultPing}
}

// Normalize produces the canonical event for a payload, or nil when the
// payload is a test ping and carries no event. The transform is pure.
func (n *Normalizer) Normalize(payload map[string]any) *domain.NormalizedEvent {
	if payload == nil || n.Ping(payload) {
		return nil
	}

	ev := &domain.NormalizedEvent{
		Project:     probeString(payload, projectPaths),
		Environment: probeString(payload, environmentPaths),
		IssueID:     probeString(payload, issueIDPaths),
		Title:       probeString(payload, titlePaths),
		Permalink:   probeString(payload, permalinkPaths),
		Level:       probeString(payload, levelPaths),
		Culprit:     probeString(payload, culpritPaths),
		Message:     probeString(payload, messagePaths),
	}
	ev.Frames = n.extractFrames(payload)
	return ev
}

// extractFrames takes the last FrameLimit frames of the innermost exception
// and reverses them so the most recent call comes first.
func (n *Normalizer) extractFrames(payload map[string]any) []domain.Frame {
	values := probeSlice(payload, exceptionPaths)
	if len(values) == 0 {
		return nil
	}
	innermost, ok := values[len(values)-1].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := dig(innermost, "stacktrace", "frames").([]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	limit := n.FrameLimit
	if limit <= 0 || limit > len(raw) {
		limit = len(raw)
	}
	raw = raw[len(raw)-limit:]

	frames := make([]domain.Frame, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		fm, ok := raw[i].(map[string]any)
		if !ok {
			continue
		}
		frame := domain.Frame{Function: asString(fm["function"])}
		if frame.Module = asString(fm["module"]); frame.Module == "" {
			frame.Module = asString(fm["filename"])
		}
		if line, ok := fm["lineno"].(float64); ok {
			frame.Line = int(line)
		}
		frames = append(frames, frame)
	}
	return frames
}

func probeString(payload map[string]any, paths fieldPaths) string {
	for _, path := range paths {
		if s := asString(dig(payload, path...)); s != "" {
			return s
		}
	}
	return ""
}

func probeSlice(payload map[string]any, paths fieldPaths) []any {
	for _, path := range paths {
		if s, ok := dig(payload, path...).([]any); ok && len(s) > 0 {
			return s
		}
	}
	return nil
}

// dig walks nested maps along path, returning nil when any hop is missing.
func dig(node map[string]any, path ...string) any {
	var current any = node
	for _, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[segment]
	}
	return current
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
