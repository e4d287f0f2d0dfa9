package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"regwatch.co/sentinel/common/id"
	"regwatch.co/sentinel/common/logger"
	"regwatch.co/sentinel/internal/classifier"
	"regwatch.co/sentinel/internal/detector"
	"regwatch.co/sentinel/internal/fetcher"
	"regwatch.co/sentinel/internal/model"
	"regwatch.co/sentinel/internal/queue"
	"regwatch.co/sentinel/internal/registry"
	"regwatch.co/sentinel/internal/store"
)

// Deps are the monitor's collaborators, injected at construction so
// tests can substitute fakes for every external boundary.
type Deps struct {
	Registry   *registry.Registry
	Fetcher    fetcher.Fetcher
	Classifier classifier.Classifier
	Snapshots  store.SnapshotStore
	Alerts     store.AlertStore
	Publisher  queue.Publisher // optional; nil disables alert publication
}

type Config struct {
	Concurrency   int
	SourceTimeout time.Duration
}

// Monitor drives the change-detection pipeline across the registry.
// Each RunOnce is a bounded-concurrency fan-out over independent
// sources; no failure in one source ever aborts a sibling.
type Monitor struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

func New(deps Deps, cfg Config) *Monitor {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 60 * time.Second
	}
	return &Monitor{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
}

// RunOnce processes every registered source and returns the aggregate
// summary. It never returns an error: all failures are converted to
// per-source outcomes inside the summary.
func (m *Monitor) RunOnce(ctx context.Context) model.RunSummary {
	runID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(runID),
		Component: "sentinel.monitor",
	})

	sc := logger.StartSpan(ctx, "monitor.run")
	defer sc.End()
	ctx = sc.Context()

	sources := m.deps.Registry.Sources()
	started := m.now()

	slog.InfoContext(ctx, "run started",
		"sources", len(sources),
		"concurrency", m.cfg.Concurrency,
		"source_timeout", m.cfg.SourceTimeout.String())

	type job struct {
		idx int
		src model.Source
	}

	jobs := make(chan job)
	results := make([]model.RunResult, len(sources))

	var wg sync.WaitGroup
	for w := 0; w < m.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker writes a distinct index; no shared state.
				results[j.idx] = m.processSourceSafe(ctx, j.src)
			}
		}()
	}

	for i, src := range sources {
		jobs <- job{idx: i, src: src}
	}
	close(jobs)
	wg.Wait()

	summary := model.RunSummary{
		RunID:     runID,
		Timestamp: started,
		Results:   results,
	}

	sc.Span().SetAttributes(
		attribute.Int("run.sources", len(sources)),
		attribute.Int("run.alerts", summary.AlertCount()),
		attribute.Int("run.errors", len(summary.Errors())),
	)

	slog.InfoContext(ctx, "run finished",
		"duration_ms", time.Since(started).Milliseconds(),
		"alerts", summary.AlertCount(),
		"errors", len(summary.Errors()))

	return summary
}

// processSourceSafe isolates a panicking source the same way an error
// is isolated: it becomes that source's outcome, nothing more.
func (m *Monitor) processSourceSafe(ctx context.Context, src model.Source) (result model.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered while processing source",
				"panic", r, "source_id", src.ID)
			result = errorResult(src, model.OutcomeFetchError, time.Duration(0), fmt.Errorf("panic: %v", r))
		}
	}()
	return m.processSource(ctx, src)
}

func (m *Monitor) processSource(ctx context.Context, src model.Source) model.RunResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.SourceTimeout)
	defer cancel()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SourceID:     logger.Ptr(src.ID),
		Jurisdiction: logger.Ptr(src.Jurisdiction),
	})

	sc := logger.StartSpan(ctx, "monitor.source",
		trace.WithAttributes(attribute.String("source.id", src.ID)))
	defer sc.End()
	ctx = sc.Context()

	prior, err := m.deps.Snapshots.Get(ctx, src.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "snapshot read failed", "error", err)
		return errorResult(src, model.OutcomeSnapshotError, time.Since(start), err)
	}

	content, err := m.deps.Fetcher.Fetch(ctx, src.Endpoint)
	if err != nil {
		// No new content observed; the stored snapshot stays untouched.
		sc.RecordError(err)
		slog.WarnContext(ctx, "fetch failed", "error", err)
		return errorResult(src, model.OutcomeFetchError, time.Since(start), err)
	}

	det := detector.Detect(content, prior)
	now := m.now()

	switch det.Status {
	case detector.StatusInitial:
		snap := &model.Snapshot{
			SourceID:           src.ID,
			ContentFingerprint: det.Fingerprint,
			RawContent:         content,
			LastScrapedAt:      now,
			LastChangedAt:      now,
		}
		if err := m.deps.Snapshots.Upsert(ctx, snap); err != nil {
			sc.RecordError(err)
			slog.ErrorContext(ctx, "initial snapshot write failed", "error", err)
			return errorResult(src, model.OutcomeSnapshotError, time.Since(start), err)
		}
		slog.InfoContext(ctx, "initial snapshot stored", "fingerprint", det.Fingerprint)
		return okResult(src, model.OutcomeInitial, time.Since(start))

	case detector.StatusUnchanged:
		if err := m.deps.Snapshots.TouchScraped(ctx, src.ID, now); err != nil {
			sc.RecordError(err)
			slog.ErrorContext(ctx, "snapshot touch failed", "error", err)
			return errorResult(src, model.OutcomeSnapshotError, time.Since(start), err)
		}
		slog.DebugContext(ctx, "content unchanged")
		return okResult(src, model.OutcomeUnchanged, time.Since(start))

	default:
		return m.processChanged(ctx, src, prior, content, det, start, now)
	}
}

// processChanged handles the classify → alert → persist tail of the
// pipeline. The snapshot baseline only advances once everything the
// change event requires has been recorded: on classify or alert store
// failure the prior snapshot is retained so the same diff is retried on
// the next run.
func (m *Monitor) processChanged(ctx context.Context, src model.Source, prior *model.Snapshot, content string, det detector.Detection, start time.Time, now time.Time) model.RunResult {
	cls, err := m.deps.Classifier.Classify(ctx, prior.RawContent, content, src.Jurisdiction)
	if err != nil {
		slog.WarnContext(ctx, "classification failed, snapshot baseline retained", "error", err)
		return errorResult(src, model.OutcomeClassifyError, time.Since(start), err)
	}

	snap := &model.Snapshot{
		SourceID:           src.ID,
		ContentFingerprint: det.Fingerprint,
		RawContent:         content,
		LastScrapedAt:      now,
		LastChangedAt:      now,
	}

	if !cls.MaterialChange {
		if err := m.deps.Snapshots.Upsert(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "snapshot write failed", "error", err)
			return errorResult(src, model.OutcomeSnapshotError, time.Since(start), err)
		}
		slog.InfoContext(ctx, "change judged immaterial")
		return okResult(src, model.OutcomeNoMaterialChange, time.Since(start))
	}

	alert := &model.Alert{
		ID:             id.New(),
		SourceID:       src.ID,
		UpdateType:     cls.UpdateType,
		Severity:       cls.Severity,
		Summary:        cls.Summary,
		ImpactAnalysis: cls.ImpactAnalysis,
		DetectedAt:     now,
	}
	if err := m.deps.Alerts.Create(ctx, alert); err != nil {
		// Losing the audit record outranks losing a snapshot; surface it
		// as the distinguished alert_error outcome and retry the whole
		// diff next run by keeping the prior baseline.
		slog.ErrorContext(ctx, "alert write failed after confirmed material change", "error", err)
		return errorResult(src, model.OutcomeAlertError, time.Since(start), err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{AlertID: logger.Ptr(alert.ID)})
	slog.InfoContext(ctx, "alert emitted",
		"severity", alert.Severity,
		"update_type", alert.UpdateType)

	if m.deps.Publisher != nil {
		msg := queue.AlertMessage{
			AlertID:      alert.ID,
			SourceID:     src.ID,
			Jurisdiction: src.Jurisdiction,
			Severity:     alert.Severity,
			Summary:      alert.Summary,
		}
		if err := m.deps.Publisher.Publish(ctx, msg); err != nil {
			// The alert row exists; the dispatcher can still find it via
			// the unnotified read path. Publication is best effort.
			slog.WarnContext(ctx, "alert publication failed", "error", err)
		}
	}

	result := okResult(src, model.OutcomeMaterialChange, 0)
	result.Severity = &cls.Severity
	result.AlertID = &alert.ID

	if err := m.deps.Snapshots.Upsert(ctx, snap); err != nil {
		slog.ErrorContext(ctx, "snapshot write failed after alert", "error", err)
		errRes := errorResult(src, model.OutcomeSnapshotError, time.Since(start), err)
		errRes.Severity = result.Severity
		errRes.AlertID = result.AlertID
		return errRes
	}

	result.Duration = time.Since(start)
	return result
}

func okResult(src model.Source, outcome model.Outcome, d time.Duration) model.RunResult {
	return model.RunResult{
		SourceID:     src.ID,
		Jurisdiction: src.Jurisdiction,
		Outcome:      outcome,
		Duration:     d,
	}
}

func errorResult(src model.Source, outcome model.Outcome, d time.Duration, err error) model.RunResult {
	msg := err.Error()
	return model.RunResult{
		SourceID:     src.ID,
		Jurisdiction: src.Jurisdiction,
		Outcome:      outcome,
		Error:        &msg,
		Duration:     d,
	}
}
