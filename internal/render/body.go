// Package render owns the ticket body contract shared by both ticket
// stores: a body is an ordered list of named sections (Links, AI Summary,
// Context, Status, Frames) closed by a grouping-key token. Only the Status
// section is ever machine-rewritten; everything else is preserved verbatim
// so manual edits survive updates.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spec-kit/alert-bridge/internal/domain"
)

const (
	summaryHeading = "## AI Summary"
	timeLayout     = time.RFC3339
)

var (
	statusBlockRe = regexp.MustCompile(`(?m)^- Occurrences: .*\n- First seen: .*\n- Last seen: .*$`)
	groupKeyRe    = regexp.MustCompile("GroupKey: `([^`\n]+)`")
	permalinkRe   = regexp.MustCompile(`\*\*Source:\*\* (\S+)`)
	taskTitleRe   = regexp.MustCompile(`^(.*) \[([^\]\[]*)\]$`)
)

// TicketInput carries everything a full body render needs.
type TicketInput struct {
	Key         domain.GroupingKey
	Title       string
	Project     string
	Environment string
	Level       string
	Culprit     string
	Message     string
	Permalink   string
	Summary     string
	Frames      []domain.Frame
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Body renders the fixed ticket template. The grouping-key token at the end
// must stay recoverable via ExtractGroupingKey or escalation breaks.
func Body(in TicketInput) string {
	var b strings.Builder

	b.WriteString("## Links\n")
	if in.Permalink != "" {
		fmt.Fprintf(&b, "**Source:** %s\n", in.Permalink)
	}
	b.WriteString("\n")

	if in.Summary != "" {
		b.WriteString(summaryHeading + "\n")
		b.WriteString(strings.TrimRight(in.Summary, "\n") + "\n\n")
	}

	b.WriteString("## Context\n")
	fmt.Fprintf(&b, "- Project: %s\n", in.Project)
	fmt.Fprintf(&b, "- Environment: %s\n", in.Environment)
	if in.Level != "" {
		fmt.Fprintf(&b, "- Level: %s\n", in.Level)
	}
	if in.Culprit != "" {
		fmt.Fprintf(&b, "- Culprit: %s\n", in.Culprit)
	}
	if in.Message != "" {
		fmt.Fprintf(&b, "- Message: %s\n", in.Message)
	}
	b.WriteString("\n")

	b.WriteString("## Status\n")
	b.WriteString(statusLines(in.Occurrences, in.FirstSeen, in.LastSeen))
	b.WriteString("\n\n")

	if len(in.Frames) > 0 {
		b.WriteString("## Frames\n")
		for _, frame := range in.Frames {
			fmt.Fprintf(&b, "- `%s:%d` in `%s`\n", frame.Module, frame.Line, frame.Function)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "GroupKey: `%s`\n", in.Key)
	return b.String()
}

// ReconcileStatus patches only the three machine-owned Status fields in an
// existing body, leaving everything else byte-identical. The second return
// is false when the block's delimiter is missing (a human edited it away),
// in which case the caller rebuilds the full body from the template.
func ReconcileStatus(body string, occurrences int, firstSeen, lastSeen time.Time) (string, bool) {
	if !statusBlockRe.MatchString(body) {
		return body, false
	}
	replaced := false
	patched := statusBlockRe.ReplaceAllStringFunc(body, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		return statusLines(occurrences, firstSeen, lastSeen)
	})
	return patched, true
}

func statusLines(occurrences int, firstSeen, lastSeen time.Time) string {
	return fmt.Sprintf("- Occurrences: %d\n- First seen: %s\n- Last seen: %s",
		occurrences, firstSeen.UTC().Format(timeLayout), lastSeen.UTC().Format(timeLayout))
}

// TaskTitle renders the secondary-store task title so that the environment
// can be parsed back out during escalation.
func TaskTitle(title, environment string) string {
	return fmt.Sprintf("%s [%s]", title, environment)
}

// ParseTaskTitle inverts TaskTitle. A title without the environment suffix
// comes back whole with an empty environment.
func ParseTaskTitle(taskTitle string) (title, environment string) {
	m := taskTitleRe.FindStringSubmatch(taskTitle)
	if m == nil {
		return taskTitle, ""
	}
	return m[1], m[2]
}

// ExtractGroupingKey recovers the embedded grouping-key token from a body.
func ExtractGroupingKey(body string) (domain.GroupingKey, bool) {
	m := groupKeyRe.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return domain.GroupingKey(m[1]), true
}

// ExtractPermalink recovers the source permalink from the Links section.
func ExtractPermalink(body string) string {
	m := permalinkRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractSummary slices the AI Summary section out of a body, verbatim,
// so a primary ticket created from a secondary-store trigger can reuse it.
func ExtractSummary(body string) string {
	idx := strings.Index(body, summaryHeading)
	if idx < 0 {
		return ""
	}
	rest := body[idx+len(summaryHeading):]
	if end := strings.Index(rest, "\n## "); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// OccurrenceNote is the short comment appended on a repeat occurrence.
func OccurrenceNote(count int, lastSeen time.Time, permalink string) string {
	note := fmt.Sprintf("New occurrence #%d at %s.", count, lastSeen.UTC().Format(timeLayout))
	if permalink != "" {
		note += fmt.Sprintf(" [Source](%s)", permalink)
	}
	return note
}

// CrossReferenceNote points a secondary ticket at its escalated issue.
func CrossReferenceNote(issueURL string) string {
	return fmt.Sprintf("Escalated to issue: %s", issueURL)
}
