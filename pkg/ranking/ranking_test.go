package ranking_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zapwave/zapwave/pkg/catalog"
	"github.com/zapwave/zapwave/pkg/ranking"
)

func track(id, artist string, sats int64, zaps int, age time.Duration, now time.Time) catalog.Track {
	return catalog.Track{
		ID:        id,
		ArtistID:  artist,
		Title:     id,
		TotalSats: sats,
		ZapCount:  zaps,
		CreatedAt: now.Add(-age),
	}
}

func TestScorer_Score(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a scorer with default weights", t, func() {
		scorer := ranking.NewScorer(0, 0, 0)

		Convey("A zero-engagement track scores only on recency", func() {
			// 3.5 days old: recency = (7 - 3.5) / 7 = 0.5
			tr := track("a", "artist1", 0, 0, 84*time.Hour, now)
			So(scorer.Score(tr, now), ShouldAlmostEqual, 0.15*0.5, 1e-9)
		})

		Convey("A freshly published zero-engagement track scores the full recency weight", func() {
			tr := track("a", "artist1", 0, 0, 0, now)
			So(scorer.Score(tr, now), ShouldAlmostEqual, 0.15, 1e-9)
		})

		Convey("Tracks older than the window get zero recency", func() {
			tr := track("a", "artist1", 0, 0, 8*24*time.Hour, now)
			So(scorer.Score(tr, now), ShouldEqual, 0)
		})

		Convey("A missing timestamp contributes zero recency", func() {
			tr := catalog.Track{ID: "a", ArtistID: "artist1", TotalSats: 0, ZapCount: 0}
			So(scorer.Score(tr, now), ShouldEqual, 0)
		})

		Convey("Score is monotonically non-decreasing in sats", func() {
			base := track("a", "artist1", 10, 1, 24*time.Hour, now)
			richer := base
			richer.TotalSats = 1000
			So(scorer.Score(richer, now), ShouldBeGreaterThan, scorer.Score(base, now))
		})

		Convey("Score is monotonically non-decreasing in zap count", func() {
			base := track("a", "artist1", 10, 1, 24*time.Hour, now)
			busier := base
			busier.ZapCount = 50
			So(scorer.Score(busier, now), ShouldBeGreaterThan, scorer.Score(base, now))
		})

		Convey("Scoring is deterministic for identical inputs", func() {
			tr := track("a", "artist1", 1234, 7, 30*time.Hour, now)
			So(scorer.Score(tr, now), ShouldEqual, scorer.Score(tr, now))
		})
	})

	Convey("Given custom weights", t, func() {
		scorer := ranking.NewScorer(1, 0, 0)

		Convey("Only the weighted term contributes", func() {
			tr := track("a", "artist1", 0, 100, time.Hour, now)
			So(scorer.Score(tr, now), ShouldEqual, 0)
		})
	})
}

func TestSortByTrendingScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := ranking.NewScorer(0, 0, 0)

	Convey("Given a mix of engaged and zero-engagement tracks", t, func() {
		older := track("old-quiet", "a1", 0, 0, 48*time.Hour, now)
		newer := track("new-quiet", "a2", 0, 0, 2*time.Hour, now)
		popular := track("popular", "a3", 50_000, 40, 6*24*time.Hour, now)

		Convey("Zero-engagement tracks order newest-first among themselves", func() {
			sorted := scorer.SortByTrendingScore([]catalog.Track{older, newer}, now)
			So(sorted[0].ID, ShouldEqual, "new-quiet")
			So(sorted[1].ID, ShouldEqual, "old-quiet")
		})

		Convey("The fallback beats a stable tie-break on equal scores", func() {
			// Both past the recency window, so both score exactly 0. A plain
			// stable sort would keep stale1 first; the timestamp fallback
			// must put the newer one first instead.
			stale1 := track("stale1", "a1", 0, 0, 20*24*time.Hour, now)
			stale2 := track("stale2", "a2", 0, 0, 9*24*time.Hour, now)
			sorted := scorer.SortByTrendingScore([]catalog.Track{stale1, stale2}, now)
			So(sorted[0].ID, ShouldEqual, "stale2")
			So(sorted[1].ID, ShouldEqual, "stale1")
		})

		Convey("Engaged tracks order by descending score", func() {
			sorted := scorer.SortByTrendingScore([]catalog.Track{newer, popular, older}, now)
			So(sorted[0].ID, ShouldEqual, "popular")
		})

		Convey("The input slice is not reordered", func() {
			in := []catalog.Track{older, newer, popular}
			_ = scorer.SortByTrendingScore(in, now)
			So(in[0].ID, ShouldEqual, "old-quiet")
			So(in[1].ID, ShouldEqual, "new-quiet")
			So(in[2].ID, ShouldEqual, "popular")
		})

		Convey("Equal-score engaged tracks keep their input order", func() {
			twinA := track("twin-a", "a1", 500, 5, 10*24*time.Hour, now)
			twinB := track("twin-b", "a2", 500, 5, 10*24*time.Hour, now)
			sorted := scorer.SortByTrendingScore([]catalog.Track{twinA, twinB}, now)
			So(sorted[0].ID, ShouldEqual, "twin-a")
			So(sorted[1].ID, ShouldEqual, "twin-b")
		})
	})
}

func TestApplyDiversityFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scorer := ranking.NewScorer(0, 0, 0)

	scoreAll := func(tracks ...catalog.Track) []ranking.ScoredTrack {
		return scorer.ScoreAll(tracks, now)
	}

	Convey("Given one artist dominating the candidates", t, func() {
		candidates := scoreAll(
			track("t1", "whale", 100_000, 50, time.Hour, now),
			track("t2", "whale", 90_000, 45, time.Hour, now),
			track("t3", "whale", 80_000, 40, time.Hour, now),
			track("t4", "indie", 500, 3, time.Hour, now),
			track("t5", "other", 50, 1, time.Hour, now),
		)

		Convey("No artist exceeds the cap", func() {
			out := ranking.ApplyDiversityFilter(candidates, 2)
			perArtist := map[string]int{}
			for _, c := range out {
				perArtist[c.ArtistID]++
			}
			for artist, n := range perArtist {
				So(n, ShouldBeLessThanOrEqualTo, 2)
				So(artist, ShouldNotBeEmpty)
			}
			So(len(out), ShouldEqual, 4)
		})

		Convey("Output stays in descending score order", func() {
			out := ranking.ApplyDiversityFilter(candidates, 2)
			for i := 1; i < len(out); i++ {
				So(out[i].Score, ShouldBeLessThanOrEqualTo, out[i-1].Score)
			}
		})

		Convey("Output is never longer than the input", func() {
			out := ranking.ApplyDiversityFilter(candidates, 1)
			So(len(out), ShouldBeLessThanOrEqualTo, len(candidates))
			So(len(out), ShouldEqual, 3)
		})

		Convey("A cap below one admits nothing", func() {
			So(ranking.ApplyDiversityFilter(candidates, 0), ShouldBeEmpty)
			So(ranking.ApplyDiversityFilter(candidates, -3), ShouldBeEmpty)
		})

		Convey("The input slice order is untouched", func() {
			shuffled := []ranking.ScoredTrack{candidates[4], candidates[0], candidates[2]}
			_ = ranking.ApplyDiversityFilter(shuffled, 2)
			So(shuffled[0].ID, ShouldEqual, "t5")
			So(shuffled[1].ID, ShouldEqual, "t1")
			So(shuffled[2].ID, ShouldEqual, "t3")
		})
	})
}

func TestExcludeTracks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a candidate list", t, func() {
		tracks := []catalog.Track{
			track("t1", "a1", 10, 1, time.Hour, now),
			track("t2", "a2", 20, 2, time.Hour, now),
			track("t3", "a3", 30, 3, time.Hour, now),
		}

		Convey("An empty exclude set returns the input unchanged", func() {
			out := ranking.ExcludeTracks(tracks, nil)
			So(out, ShouldResemble, tracks)

			out = ranking.ExcludeTracks(tracks, []string{})
			So(out, ShouldResemble, tracks)
		})

		Convey("Matching IDs are removed, order preserved", func() {
			out := ranking.ExcludeTracks(tracks, []string{"t2"})
			So(len(out), ShouldEqual, 2)
			So(out[0].ID, ShouldEqual, "t1")
			So(out[1].ID, ShouldEqual, "t3")
		})

		Convey("Unknown IDs are a no-op", func() {
			out := ranking.ExcludeTracks(tracks, []string{"nope"})
			So(len(out), ShouldEqual, 3)
		})
	})
}
