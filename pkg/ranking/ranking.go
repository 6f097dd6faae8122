package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// Default scoring weights. Sats carry most of the signal; the log scale
// keeps a single outsized zap from dominating the chart, and the recency
// term is capped to a bounded window so it never outranks sustained support.
const (
	DefaultSatsWeight    = 0.6
	DefaultZapWeight     = 0.25
	DefaultRecencyWeight = 0.15

	// DefaultMaxPerArtist caps how many chart slots one artist can hold.
	DefaultMaxPerArtist = 2

	recencyWindowDays = 7
)

// Scorer converts a track's engagement and recency signals into a single
// trending score. It holds no state beyond the weights; every method is a
// pure function of its arguments.
type Scorer struct {
	satsWeight    float64
	zapWeight     float64
	recencyWeight float64
}

// NewScorer creates a scorer with the given weights. All-zero weights fall
// back to the defaults.
func NewScorer(satsW, zapW, recencyW float64) *Scorer {
	if satsW+zapW+recencyW == 0 {
		satsW = DefaultSatsWeight
		zapW = DefaultZapWeight
		recencyW = DefaultRecencyWeight
	}
	return &Scorer{
		satsWeight:    satsW,
		zapWeight:     zapW,
		recencyWeight: recencyW,
	}
}

// ScoredTrack pairs a track with its transient trending score. Scores are
// recomputed on every ranking pass and never persisted with the track.
type ScoredTrack struct {
	catalog.Track
	Score float64 `json:"trending_score"`
}

// Score computes the blended trending score for a track at the given
// instant. Missing timestamps contribute zero recency; zap counters are
// already non-negative by the data model.
func (s *Scorer) Score(t catalog.Track, now time.Time) float64 {
	return s.satsWeight*math.Log(float64(t.TotalSats)+1) +
		s.zapWeight*math.Log(float64(t.ZapCount)+1) +
		s.recencyWeight*recencyScore(t.CreatedAt, now)
}

// recencyScore decays linearly from 1 at publish time to 0 at the window
// edge, and stays 0 beyond it or when the timestamp is missing.
func recencyScore(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	days := now.Sub(createdAt).Hours() / 24
	return math.Max(0, (recencyWindowDays-days)/recencyWindowDays)
}

// ScoreAll computes scores for every track, preserving input order.
func (s *Scorer) ScoreAll(tracks []catalog.Track, now time.Time) []ScoredTrack {
	scored := make([]ScoredTrack, len(tracks))
	for i, t := range tracks {
		scored[i] = ScoredTrack{Track: t, Score: s.Score(t, now)}
	}
	return scored
}

// SortByTrendingScore returns a new slice ordered best-first. Two tracks
// that both have zero engagement are ordered newest-first by createdAt
// before any score is consulted; everything else orders by descending
// score, with ties keeping their input order.
func (s *Scorer) SortByTrendingScore(tracks []catalog.Track, now time.Time) []catalog.Track {
	scored := s.ScoreAll(tracks, now)
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if !a.HasEngagement() && !b.HasEngagement() {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Score > b.Score
	})
	out := make([]catalog.Track, len(scored))
	for i, st := range scored {
		out[i] = st.Track
	}
	return out
}

// ApplyDiversityFilter sorts candidates by descending score (stable for
// ties) and then greedily admits them, rejecting a track once its artist
// already holds maxPerArtist slots. A maxPerArtist below 1 admits nothing.
// The input slice is not modified.
func ApplyDiversityFilter(candidates []ScoredTrack, maxPerArtist int) []ScoredTrack {
	if maxPerArtist < 1 {
		return []ScoredTrack{}
	}
	sorted := make([]ScoredTrack, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	out := make([]ScoredTrack, 0, len(sorted))
	perArtist := make(map[string]int)
	for _, c := range sorted {
		if perArtist[c.ArtistID] >= maxPerArtist {
			continue
		}
		perArtist[c.ArtistID]++
		out = append(out, c)
	}
	return out
}

// ExcludeTracks removes candidates whose ID appears in excludeIDs. An
// empty or nil exclude set returns the input unchanged.
func ExcludeTracks(tracks []catalog.Track, excludeIDs []string) []catalog.Track {
	if len(excludeIDs) == 0 {
		return tracks
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	out := make([]catalog.Track, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := excluded[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}
