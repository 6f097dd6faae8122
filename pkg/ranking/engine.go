package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/zapwave/zapwave/internal/store"
	"github.com/zapwave/zapwave/pkg/metrics"
)

// Default chart parameters.
const (
	defaultChartSize    = 50
	defaultCandidateCap = 1000
)

// Engine rebuilds the persisted trending chart from cached tracks.
type Engine struct {
	store        store.Store
	scorer       *Scorer
	maxPerArtist int
	chartSize    int
	excludeIDs   []string
	metrics      *metrics.Metrics // optional, nil = disabled
}

// NewEngine creates a chart engine. Zero maxPerArtist and chartSize fall
// back to the defaults.
func NewEngine(s store.Store, scorer *Scorer, maxPerArtist, chartSize int, excludeIDs []string, m *metrics.Metrics) *Engine {
	if maxPerArtist == 0 {
		maxPerArtist = DefaultMaxPerArtist
	}
	if chartSize <= 0 {
		chartSize = defaultChartSize
	}
	return &Engine{
		store:        s,
		scorer:       scorer,
		maxPerArtist: maxPerArtist,
		chartSize:    chartSize,
		excludeIDs:   excludeIDs,
		metrics:      m,
	}
}

// Rebuild recomputes the trending chart and persists it: load candidates,
// drop explicit exclusions, score, apply the per-artist diversity cap,
// truncate, store. Returns the new chart in rank order.
func (e *Engine) Rebuild(ctx context.Context) ([]store.ChartEntry, error) {
	tracks, err := e.store.ListTracks(ctx, store.TrackListOpts{Limit: defaultCandidateCap})
	if err != nil {
		return nil, fmt.Errorf("list chart candidates: %w", err)
	}

	tracks = ExcludeTracks(tracks, e.excludeIDs)
	if len(tracks) == 0 {
		if err := e.store.ReplaceChart(ctx, nil); err != nil {
			return nil, fmt.Errorf("clear chart: %w", err)
		}
		return nil, nil
	}

	now := time.Now().UTC()
	scored := e.scorer.ScoreAll(tracks, now)
	scored = ApplyDiversityFilter(scored, e.maxPerArtist)
	if len(scored) > e.chartSize {
		scored = scored[:e.chartSize]
	}

	entries := make([]store.ChartEntry, len(scored))
	for i, st := range scored {
		entries[i] = store.ChartEntry{
			Position: i + 1,
			Score:    st.Score,
			BuiltAt:  now,
			Track:    st.Track,
		}
	}

	if err := e.store.ReplaceChart(ctx, entries); err != nil {
		return nil, fmt.Errorf("replace chart: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ChartRebuilds.Inc()
		e.metrics.ChartEntries.Set(float64(len(entries)))
	}

	return e.store.ListChart(ctx, e.chartSize)
}
