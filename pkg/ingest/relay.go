package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// Event kinds on the relay wire.
const (
	kindTrack   = "track"
	kindRelease = "release"
	kindZap     = "zap"
)

// relayEvent is the wire shape of a signed protocol event as served by a
// relay's REST bridge. Only the fields this service consumes are decoded.
type relayEvent struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Pubkey    string   `json:"pubkey"`
	CreatedAt int64    `json:"created_at"`
	Title     string   `json:"title"`
	AudioURL  string   `json:"audio_url"`
	Duration  int      `json:"duration"`
	ImageURL  string   `json:"image_url"`
	Published int64    `json:"published_at"`
	TrackIDs  []string `json:"track_ids"`
	TargetID  string   `json:"target_id"`
	Amount    int64    `json:"amount_sats"`
}

// Relay fetches track, release, and zap events from a relay endpoint.
type Relay struct {
	client *http.Client
	name   string
	base   string
	window time.Duration
	filter *Filter
}

// NewRelay creates a relay collector. window bounds how far back each
// fetch reaches; zero means 24 hours.
func NewRelay(name, baseURL string, window time.Duration, filter *Filter) *Relay {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Relay{
		client: &http.Client{Timeout: 30 * time.Second},
		name:   name,
		base:   baseURL,
		window: window,
		filter: filter,
	}
}

func (r *Relay) Name() string { return r.name }

func (r *Relay) Fetch(ctx context.Context) (Batch, error) {
	since := time.Now().Add(-r.window).Unix()
	u := fmt.Sprintf("%s/api/v1/events?kinds=%s&since=%d",
		r.base, url.QueryEscape(kindTrack+","+kindRelease+","+kindZap), since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Batch{}, fmt.Errorf("create relay request %s: %w", r.name, err)
	}
	req.Header.Set("User-Agent", "zapwave/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Batch{}, fmt.Errorf("fetch relay %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Batch{}, fmt.Errorf("relay %s status %d", r.name, resp.StatusCode)
	}

	var events []relayEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return Batch{}, fmt.Errorf("decode relay %s: %w", r.name, err)
	}

	return r.filter.Apply(toBatch(events)), nil
}

// toBatch converts wire events into domain records. Release events carry
// ordered track ID lists; the tracks themselves arrive as separate events
// and are joined in the cache layer.
func toBatch(events []relayEvent) Batch {
	var b Batch
	for _, ev := range events {
		switch ev.Kind {
		case kindTrack:
			b.Tracks = append(b.Tracks, catalog.Track{
				ID:          ev.ID,
				ArtistID:    ev.Pubkey,
				Title:       ev.Title,
				AudioURL:    ev.AudioURL,
				DurationSec: ev.Duration,
				CreatedAt:   unixTime(ev.CreatedAt),
			})
		case kindRelease:
			rel := catalog.Release{
				ID:          ev.ID,
				ArtistID:    ev.Pubkey,
				Title:       ev.Title,
				ImageURL:    ev.ImageURL,
				CreatedAt:   unixTime(ev.CreatedAt),
				PublishDate: unixTime(ev.Published),
			}
			for _, tid := range ev.TrackIDs {
				rel.Tracks = append(rel.Tracks, catalog.Track{ID: tid})
			}
			b.Releases = append(b.Releases, rel)
		case kindZap:
			if ev.Amount < 0 {
				continue // malformed receipt
			}
			b.Zaps = append(b.Zaps, catalog.Zap{
				ID:         ev.ID,
				TrackID:    ev.TargetID,
				SenderID:   ev.Pubkey,
				AmountSats: ev.Amount,
				CreatedAt:  unixTime(ev.CreatedAt),
			})
		}
	}
	return b
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
