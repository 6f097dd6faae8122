package catalog

import "sort"

// Filter controls release selection for the listening surfaces. The zero
// value applies no filtering; use RecentFilter or AllFilter for the two
// canonical views.
type Filter struct {
	// ExcludeLatest drops the release matching Latest.ID, so the "latest
	// release" hero slot is not repeated in the list below it.
	ExcludeLatest bool
	// RequireImages drops releases without a cover image.
	RequireImages bool
	// Limit truncates the result. Zero or negative means no truncation.
	Limit int
	// ArtistID keeps only releases by this artist when set.
	ArtistID string
	// Latest is the release excluded by ExcludeLatest.
	Latest *Release
}

// RecentFilter returns the defaults for the short "recent releases" view.
func RecentFilter() Filter {
	return Filter{ExcludeLatest: true, RequireImages: true, Limit: 10}
}

// AllFilter returns the defaults for the comprehensive catalog view.
func AllFilter() Filter {
	return Filter{Limit: 50}
}

// SelectReleases applies the filter pipeline in a fixed order: cover-image
// requirement, latest-release exclusion, artist match, then truncation.
// Input order is preserved; callers pre-sort if they want a dated view.
// The input slice is never modified.
func SelectReleases(releases []Release, f Filter) []Release {
	out := make([]Release, 0, len(releases))
	for _, r := range releases {
		if f.RequireImages && !r.HasImage() {
			continue
		}
		if f.ExcludeLatest && f.Latest != nil && r.ID == f.Latest.ID {
			continue
		}
		if f.ArtistID != "" && r.ArtistID != f.ArtistID {
			continue
		}
		out = append(out, r)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// LatestRelease returns the most recent release by effective timestamp
// (createdAt, falling back to publishDate; missing timestamps compare as
// the epoch). Returns nil for an empty input. Ties keep the earlier
// element of the input.
func LatestRelease(releases []Release) *Release {
	var latest *Release
	for i := range releases {
		if latest == nil || releases[i].EffectiveTime().After(latest.EffectiveTime()) {
			latest = &releases[i]
		}
	}
	return latest
}

// LatestReleaseWithImage is LatestRelease restricted to releases carrying
// a cover image. Returns nil if none qualify.
func LatestReleaseWithImage(releases []Release) *Release {
	var latest *Release
	for i := range releases {
		if !releases[i].HasImage() {
			continue
		}
		if latest == nil || releases[i].EffectiveTime().After(latest.EffectiveTime()) {
			latest = &releases[i]
		}
	}
	return latest
}

// SortReleasesByDate returns a new slice ordered newest-first by effective
// timestamp. The sort is stable, so applying it to an already-sorted list
// changes nothing. The input is not mutated.
func SortReleasesByDate(releases []Release) []Release {
	out := make([]Release, len(releases))
	copy(out, releases)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveTime().After(out[j].EffectiveTime())
	})
	return out
}
