package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/alert-bridge/internal/config"
	"github.com/spec-kit/alert-bridge/internal/correlation"
	"github.com/spec-kit/alert-bridge/internal/domain"
	"github.com/spec-kit/alert-bridge/internal/events"
	"github.com/spec-kit/alert-bridge/internal/observability"
	"github.com/spec-kit/alert-bridge/internal/render"
	"github.com/spec-kit/alert-bridge/internal/summarize"
	"github.com/spec-kit/alert-bridge/internal/tickets"
)

// Outcome classifies what a delivery did, for the response status.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// LifecycleService decides create-vs-update per (grouping key, store) and
// renders ticket bodies. For any single request the order is: correlation
// read, then ticket-store calls, then correlation write. The read-decide-
// write sequence is not atomic; a racing duplicate is a degraded outcome the
// next delivery recovers from, never a crash.
type LifecycleService struct {
	correlations correlation.Store
	primary      tickets.PrimaryStore
	secondary    tickets.SecondaryStore
	summarizer   summarize.Summarizer
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	bridge       config.BridgeConfig
	gitlab       config.GitLabConfig
	primaryMode  tickets.UpdateStrategy
	secondMode   tickets.UpdateStrategy
	now          func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	Correlations correlation.Store
	Primary      tickets.PrimaryStore
	Secondary    tickets.SecondaryStore
	Summarizer   summarize.Summarizer
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(cfg config.Config, deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		correlations: deps.Correlations,
		primary:      deps.Primary,
		secondary:    deps.Secondary,
		summarizer:   deps.Summarizer,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		bridge:       cfg.Bridge,
		gitlab:       cfg.GitLab,
		primaryMode:  tickets.ParseStrategy(cfg.Bridge.PrimaryUpdateStrategy, tickets.StrategyComment),
		secondMode:   tickets.ParseStrategy(cfg.Bridge.SecondaryUpdateStrategy, tickets.StrategyPatchBody),
		now:          time.Now,
	}
}

// HandleEvent runs one correlated delivery against the secondary store and,
// when a primary ticket is already linked (or first-event creation is
// enabled), against the primary store as well.
func (s *LifecycleService) HandleEvent(ctx context.Context, ev domain.NormalizedEvent) (Outcome, error) {
	key, ok := ev.Key()
	if !ok {
		s.logger.Info("event without source issue id, not correlated",
			zap.String("project", ev.Project), zap.String("title", ev.Title))
		return OutcomeSkipped, nil
	}

	record, err := s.correlations.Get(ctx, key)
	if err != nil {
		return OutcomeSkipped, err
	}

	now := s.now()
	created := record == nil
	if created {
		record = &domain.CorrelationRecord{Count: 1, FirstSeen: now}
	} else {
		record.Count++
	}

	summary := ""
	if created {
		summary = s.summarize(ctx, ev)
	}

	outcome, err := s.applySecondary(ctx, key, ev, record, summary, now)
	if err != nil {
		return OutcomeSkipped, err
	}

	if err := s.applyPrimary(ctx, key, ev, record, summary, now, created); err != nil {
		return OutcomeSkipped, err
	}

	if err := s.correlations.Put(ctx, key, *record); err != nil {
		return OutcomeSkipped, err
	}

	eventType := events.EventTicketUpdated
	if outcome == OutcomeCreated {
		eventType = events.EventTicketCreated
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:        eventType,
		GroupingKey: key,
		Store:       events.StoreSecondary,
		TicketID:    record.TaskID,
		Count:       record.Count,
		Timestamp:   now,
	})

	return outcome, nil
}

// applySecondary creates the task on first sight of a key, otherwise applies
// the configured update strategy: a bare occurrence comment, or a body
// re-render patching only the Status section with a full rebuild as fallback
// when the block was edited away.
func (s *LifecycleService) applySecondary(ctx context.Context, key domain.GroupingKey, ev domain.NormalizedEvent, record *domain.CorrelationRecord, summary string, now time.Time) (Outcome, error) {
	if record.TaskID == "" {
		body := render.Body(s.ticketInput(key, ev, record, summary, now, s.bridge.SecondaryFrameLimit))
		task, err := s.secondary.CreateTask(ctx, render.TaskTitle(ev.Title, ev.Environment), body)
		if err != nil {
			return OutcomeSkipped, err
		}
		record.TaskID = task.ID
		return OutcomeCreated, nil
	}

	if s.secondMode == tickets.StrategyComment {
		if err := s.secondary.AddComment(ctx, record.TaskID, render.OccurrenceNote(record.Count, now, ev.Permalink)); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeUpdated, nil
	}

	task, err := s.secondary.GetTask(ctx, record.TaskID)
	if err != nil {
		return OutcomeSkipped, err
	}

	body, patched := render.ReconcileStatus(task.Body, record.Count, record.FirstSeen, now)
	if !patched {
		body = render.Body(s.ticketInput(key, ev, record, render.ExtractSummary(task.Body), now, s.bridge.SecondaryFrameLimit))
	}
	if err := s.secondary.UpdateTaskBody(ctx, record.TaskID, body); err != nil {
		return OutcomeSkipped, err
	}

	if s.bridge.CommentOnRepeatUpdate {
		s.try("tracker occurrence comment", func() error {
			return s.secondary.AddComment(ctx, record.TaskID, render.OccurrenceNote(record.Count, now, ev.Permalink))
		})
	}
	return OutcomeUpdated, nil
}

// applyPrimary updates the linked issue per the configured strategy; on a
// first event it creates the issue only when the toggle says so.
func (s *LifecycleService) applyPrimary(ctx context.Context, key domain.GroupingKey, ev domain.NormalizedEvent, record *domain.CorrelationRecord, summary string, now time.Time, created bool) error {
	switch {
	case record.IssueIID != 0:
		rebuild := func(prior string) string {
			return render.Body(s.ticketInput(key, ev, record, render.ExtractSummary(prior), now, s.bridge.PrimaryFrameLimit))
		}
		if _, err := s.updateLinkedIssue(ctx, record, now, ev.Permalink, rebuild); err != nil {
			return err
		}
	case created && s.bridge.CreatePrimaryOnFirstEvent:
		body := render.Body(s.ticketInput(key, ev, record, summary, now, s.bridge.PrimaryFrameLimit))
		issue, err := s.primary.CreateIssue(ctx, render.TaskTitle(ev.Title, ev.Environment), body, s.labelsFor(ev.Level))
		if err != nil {
			return err
		}
		record.IssueIID = issue.IID
	}
	return nil
}

// updateLinkedIssue applies the primary update strategy to an already linked
// issue. It returns the issue URL when the strategy had to fetch the issue,
// empty otherwise.
func (s *LifecycleService) updateLinkedIssue(ctx context.Context, record *domain.CorrelationRecord, now time.Time, permalink string, rebuild func(prior string) string) (string, error) {
	if s.primaryMode == tickets.StrategyComment {
		return "", s.primary.AddIssueNote(ctx, record.IssueIID, render.OccurrenceNote(record.Count, now, permalink))
	}

	issue, err := s.primary.GetIssue(ctx, record.IssueIID)
	if err != nil {
		return "", err
	}
	body, patched := render.ReconcileStatus(issue.Description, record.Count, record.FirstSeen, now)
	if !patched {
		body = rebuild(issue.Description)
	}
	if err := s.primary.UpdateIssueBody(ctx, record.IssueIID, body); err != nil {
		return "", err
	}
	return issue.WebURL, nil
}

// EscalationInput is the best-effort event reconstruction recovered from a
// secondary ticket during escalation.
type EscalationInput struct {
	Key         domain.GroupingKey
	TaskID      string
	Title       string
	Environment string
	Permalink   string
	Summary     string
}

// Escalate creates or updates the primary ticket for a key recovered from a
// secondary-store trigger, persists the linkage, and posts a cross-reference
// comment back to the task (best-effort).
func (s *LifecycleService) Escalate(ctx context.Context, in EscalationInput) (Outcome, error) {
	record, err := s.correlations.Get(ctx, in.Key)
	if err != nil {
		return OutcomeSkipped, err
	}

	now := s.now()
	if record == nil {
		// Retention expired or the event path lost a race. Start over.
		record = &domain.CorrelationRecord{Count: 1, FirstSeen: now}
	}
	record.TaskID = in.TaskID

	escalationBody := func(summary string) string {
		return render.Body(render.TicketInput{
			Key:         in.Key,
			Title:       in.Title,
			Project:     projectOf(in.Key),
			Environment: in.Environment,
			Permalink:   in.Permalink,
			Summary:     summary,
			Occurrences: record.Count,
			FirstSeen:   record.FirstSeen,
			LastSeen:    now,
		})
	}

	outcome := OutcomeUpdated
	issueURL := ""
	if record.IssueIID == 0 {
		issue, err := s.primary.CreateIssue(ctx, render.TaskTitle(in.Title, in.Environment), escalationBody(in.Summary), s.labelsFor(""))
		if err != nil {
			return OutcomeSkipped, err
		}
		record.IssueIID = issue.IID
		issueURL = issue.WebURL
		outcome = OutcomeCreated
	} else {
		rebuild := func(prior string) string {
			return escalationBody(render.ExtractSummary(prior))
		}
		url, err := s.updateLinkedIssue(ctx, record, now, in.Permalink, rebuild)
		if err != nil {
			return OutcomeSkipped, err
		}
		issueURL = url
		if issueURL == "" {
			s.try("primary issue lookup", func() error {
				issue, err := s.primary.GetIssue(ctx, record.IssueIID)
				if err == nil {
					issueURL = issue.WebURL
				}
				return err
			})
		}
	}

	if err := s.correlations.Put(ctx, in.Key, *record); err != nil {
		return OutcomeSkipped, err
	}

	if issueURL != "" {
		s.try("tracker cross-reference comment", func() error {
			return s.secondary.AddComment(ctx, in.TaskID, render.CrossReferenceNote(issueURL))
		})
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:        events.EventTicketEscalated,
		GroupingKey: in.Key,
		Store:       events.StorePrimary,
		TicketID:    issueURL,
		Count:       record.Count,
		Timestamp:   now,
	})

	return outcome, nil
}

func (s *LifecycleService) ticketInput(key domain.GroupingKey, ev domain.NormalizedEvent, record *domain.CorrelationRecord, summary string, now time.Time, frameLimit int) render.TicketInput {
	return render.TicketInput{
		Key:         key,
		Title:       ev.Title,
		Project:     ev.Project,
		Environment: ev.Environment,
		Level:       ev.Level,
		Culprit:     ev.Culprit,
		Message:     ev.Message,
		Permalink:   ev.Permalink,
		Summary:     summary,
		Frames:      limitFrames(ev.Frames, frameLimit),
		Occurrences: record.Count,
		FirstSeen:   record.FirstSeen,
		LastSeen:    now,
	}
}

// summarize asks for an AI summary, best-effort.
func (s *LifecycleService) summarize(ctx context.Context, ev domain.NormalizedEvent) string {
	summary, err := s.summarizer.Summarize(ctx, ev)
	if err != nil {
		s.logger.Warn("best-effort action failed", zap.String("action", "summarize"), zap.Error(err))
		s.metrics.RecordBestEffortFailure("summarize")
		return ""
	}
	return summary
}

// try runs a best-effort side action: failures are logged and counted but
// never fail the request.
func (s *LifecycleService) try(action string, fn func() error) bool {
	if err := fn(); err != nil {
		s.logger.Warn("best-effort action failed", zap.String("action", action), zap.Error(err))
		s.metrics.RecordBestEffortFailure(action)
		return false
	}
	return true
}

func (s *LifecycleService) labelsFor(level string) []string {
	labels := append([]string{}, s.gitlab.Labels...)
	if mapped, ok := s.gitlab.SeverityLabels[level]; ok {
		labels = append(labels, mapped)
	}
	return labels
}

func limitFrames(frames []domain.Frame, limit int) []domain.Frame {
	if limit <= 0 || len(frames) <= limit {
		return frames
	}
	return frames[:limit]
}

// projectOf reads the project component back out of a grouping key.
func projectOf(key domain.GroupingKey) string {
	s := string(key)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i]
		}
	}
	return s
}
