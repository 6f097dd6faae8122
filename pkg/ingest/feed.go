package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// PodcastFeed is a named RSS/Atom feed imported as a release.
type PodcastFeed struct {
	Name     string
	URL      string
	ArtistID string
}

// Feed imports podcast-style RSS/Atom feeds: each feed becomes a release
// and each enclosure-bearing entry becomes a track. Imported tracks start
// with zero engagement; zaps only ever arrive through relays.
type Feed struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []PodcastFeed
	filter *Filter
}

// NewFeed creates a podcast feed collector.
func NewFeed(feeds []PodcastFeed, filter *Filter) *Feed {
	return &Feed{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		filter: filter,
	}
}

func (f *Feed) Name() string { return "feed" }

func (f *Feed) Fetch(ctx context.Context) (Batch, error) {
	var all Batch
	for _, feed := range f.feeds {
		b, err := f.fetchFeed(ctx, feed)
		if err != nil {
			fmt.Printf("  feed %s error: %v\n", feed.Name, err)
			continue
		}
		all.Tracks = append(all.Tracks, b.Tracks...)
		all.Releases = append(all.Releases, b.Releases...)
	}
	return f.filter.Apply(all), nil
}

func (f *Feed) fetchFeed(ctx context.Context, feed PodcastFeed) (Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return Batch{}, fmt.Errorf("create feed request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "zapwave/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return Batch{}, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Batch{}, fmt.Errorf("feed %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return Batch{}, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	rel := catalog.Release{
		ID:       fmt.Sprintf("feed:%s", feed.Name),
		ArtistID: feed.ArtistID,
		Title:    parsed.Title,
	}
	if parsed.Image != nil {
		rel.ImageURL = parsed.Image.URL
	}
	if parsed.PublishedParsed != nil {
		rel.CreatedAt = parsed.PublishedParsed.UTC()
	} else if parsed.UpdatedParsed != nil {
		rel.CreatedAt = parsed.UpdatedParsed.UTC()
	}

	var b Batch
	for _, entry := range parsed.Items {
		var audioURL string
		for _, enc := range entry.Enclosures {
			if enc.URL != "" {
				audioURL = enc.URL
				break
			}
		}
		if audioURL == "" {
			continue // not playable, skip
		}

		published := time.Time{}
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		track := catalog.Track{
			ID:        fmt.Sprintf("feed:%s:%s", feed.Name, entry.GUID),
			ArtistID:  feed.ArtistID,
			Title:     entry.Title,
			AudioURL:  audioURL,
			CreatedAt: published,
		}
		b.Tracks = append(b.Tracks, track)
		rel.Tracks = append(rel.Tracks, track)
	}

	if rel.PublishDate.IsZero() && len(b.Tracks) > 0 {
		rel.PublishDate = b.Tracks[0].CreatedAt
	}

	b.Releases = append(b.Releases, rel)
	return b, nil
}
