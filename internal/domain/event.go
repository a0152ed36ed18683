package domain

import "fmt"

// Frame is a single stack frame, innermost-first after normalization.
type Frame struct {
	Module   string `json:"module"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// NormalizedEvent is the canonical shape extracted from an inbound
// monitoring payload. Constructed fresh per request, never persisted.
type NormalizedEvent struct {
	Project     string
	Environment string
	IssueID     string
	Title       string
	Permalink   string
	Level       string
	Culprit     string
	Message     string
	Frames      []Frame
}

// GroupingKey identifies "the same underlying problem" across deliveries.
type GroupingKey string

// DeriveGroupingKey builds the stable identity for an event. The second
// return is false when the source issue id is absent, in which case the
// event cannot be correlated. No case folding is applied to any component.
func DeriveGroupingKey(project, environment, issueID string) (GroupingKey, bool) {
	if issueID == "" {
		return "", false
	}
	return GroupingKey(fmt.Sprintf("%s:%s:%s", project, environment, issueID)), true
}

// Key derives the grouping key for the event itself.
func (e NormalizedEvent) Key() (GroupingKey, bool) {
	return DeriveGroupingKey(e.Project, e.Environment, e.IssueID)
}
