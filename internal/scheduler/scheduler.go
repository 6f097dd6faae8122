package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/zapwave/zapwave/internal/store"
	"github.com/zapwave/zapwave/pkg/ingest"
	"github.com/zapwave/zapwave/pkg/metrics"
	"github.com/zapwave/zapwave/pkg/notify"
	"github.com/zapwave/zapwave/pkg/ranking"
)

// Scheduler runs periodic ingest and chart rebuilds.
type Scheduler struct {
	store     store.Store
	sources   []ingest.Source
	engine    *ranking.Engine
	notifyMgr *notify.Manager
	metrics   *metrics.Metrics
	ingestInt time.Duration
	chartInt  time.Duration
}

// New creates a scheduler.
func New(
	s store.Store,
	sources []ingest.Source,
	engine *ranking.Engine,
	notifyMgr *notify.Manager,
	m *metrics.Metrics,
	ingestInt, chartInt time.Duration,
) *Scheduler {
	if ingestInt == 0 {
		ingestInt = 15 * time.Minute
	}
	if chartInt == 0 {
		chartInt = 30 * time.Minute
	}
	return &Scheduler{
		store:     s,
		sources:   sources,
		engine:    engine,
		notifyMgr: notifyMgr,
		metrics:   m,
		ingestInt: ingestInt,
		chartInt:  chartInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ingestTicker := time.NewTicker(s.ingestInt)
	chartTicker := time.NewTicker(s.chartInt)
	defer ingestTicker.Stop()
	defer chartTicker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial ingest...")
	s.ingestAll(ctx)
	fmt.Fprintln(os.Stderr, "scheduler: initial chart rebuild...")
	s.rebuildAndNotify(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (ingest every %s, chart every %s)\n",
		s.ingestInt, s.chartInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ingestTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: ingesting...")
			s.ingestAll(ctx)
		case <-chartTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: rebuilding chart...")
			s.rebuildAndNotify(ctx)
		}
	}
}

func (s *Scheduler) ingestAll(ctx context.Context) {
	runID := uuid.NewString()
	total := 0

	for _, src := range s.sources {
		batch, err := src.Fetch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [%s] %s error: %v\n", runID, src.Name(), err)
			if s.metrics != nil {
				s.metrics.IngestErrors.WithLabelValues(src.Name()).Inc()
			}
			continue
		}

		if err := s.store.ApplyBatch(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "  [%s] %s store error: %v\n", runID, src.Name(), err)
			if s.metrics != nil {
				s.metrics.IngestErrors.WithLabelValues(src.Name()).Inc()
			}
			continue
		}

		if s.metrics != nil {
			s.metrics.IngestRecords.WithLabelValues(src.Name()).Add(float64(batch.Len()))
		}
		fmt.Fprintf(os.Stderr, "  [%s] %s: %d records\n", runID, src.Name(), batch.Len())
		total += batch.Len()
	}

	if s.metrics != nil {
		s.metrics.IngestRuns.Inc()
	}
	fmt.Fprintf(os.Stderr, "  [%s] total: %d records\n", runID, total)
}

func (s *Scheduler) rebuildAndNotify(ctx context.Context) {
	entries, err := s.engine.Rebuild(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  chart rebuild error: %v\n", err)
		return
	}

	if s.notifyMgr == nil || !s.notifyMgr.HasNotifiers() {
		return
	}

	// Notify for tracks newly on the chart.
	for _, e := range entries {
		if e.Notified {
			continue
		}

		notification := &notify.Notification{
			Title:    e.Track.Title,
			Body:     fmt.Sprintf("Entered the trending chart at #%d with score %.2f", e.Position, e.Score),
			Position: e.Position,
			Score:    e.Score,
			Track:    e.Track,
		}

		if err := s.notifyMgr.Broadcast(ctx, notification); err != nil {
			fmt.Fprintf(os.Stderr, "  notify error for %q: %v\n", e.Track.Title, err)
			continue
		}

		_ = s.store.MarkNotified(ctx, e.Position)
		fmt.Fprintf(os.Stderr, "  notified: %s (#%d, score %.2f)\n", e.Track.Title, e.Position, e.Score)
	}
}
