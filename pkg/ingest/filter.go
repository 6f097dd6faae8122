package ingest

import "strings"

// Filter drops unwanted events at ingest time: blocked artists, blocked
// event IDs, and muted keywords in titles.
type Filter struct {
	blockedArtists map[string]bool
	blockedIDs     map[string]bool
	mutedKeywords  []string
}

// NewFilter creates a moderation filter. Keyword matching is
// case-insensitive.
func NewFilter(blockedArtists, blockedIDs, mutedKeywords []string) *Filter {
	f := &Filter{
		blockedArtists: make(map[string]bool, len(blockedArtists)),
		blockedIDs:     make(map[string]bool, len(blockedIDs)),
	}
	for _, a := range blockedArtists {
		f.blockedArtists[a] = true
	}
	for _, id := range blockedIDs {
		f.blockedIDs[id] = true
	}
	for _, kw := range mutedKeywords {
		f.mutedKeywords = append(f.mutedKeywords, strings.ToLower(kw))
	}
	return f
}

// Allow reports whether an event with this id, artist, and title passes.
func (f *Filter) Allow(id, artistID, title string) bool {
	if f == nil {
		return true
	}
	if f.blockedIDs[id] || f.blockedArtists[artistID] {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range f.mutedKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// Apply returns a batch with blocked records removed. Zaps for blocked
// tracks are kept; the track itself never lands in the cache, so they are
// orphaned and ignored downstream.
func (f *Filter) Apply(b Batch) Batch {
	if f == nil {
		return b
	}
	out := Batch{}
	for _, t := range b.Tracks {
		if f.Allow(t.ID, t.ArtistID, t.Title) {
			out.Tracks = append(out.Tracks, t)
		}
	}
	for _, r := range b.Releases {
		if f.Allow(r.ID, r.ArtistID, r.Title) {
			out.Releases = append(out.Releases, r)
		}
	}
	out.Zaps = b.Zaps
	return out
}
