package catalog

import "time"

// Track is a single published audio item with its aggregate zap counters.
type Track struct {
	ID          string    `json:"id" db:"id"`
	ArtistID    string    `json:"artist_id" db:"artist_id"`
	Title       string    `json:"title" db:"title"`
	AudioURL    string    `json:"audio_url" db:"audio_url"`
	DurationSec int       `json:"duration_sec" db:"duration_sec"`
	ZapCount    int       `json:"zap_count" db:"zap_count"`
	TotalSats   int64     `json:"total_sats" db:"total_sats"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HasEngagement reports whether the track has received any zaps at all.
func (t Track) HasEngagement() bool {
	return t.ZapCount > 0 || t.TotalSats > 0
}

// Release is a published collection of tracks with its own timestamp and
// an optional cover image.
type Release struct {
	ID          string    `json:"id" db:"id"`
	ArtistID    string    `json:"artist_id" db:"artist_id"`
	Title       string    `json:"title" db:"title"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	PublishDate time.Time `json:"publish_date" db:"publish_date"`
	Tracks      []Track   `json:"tracks" db:"-"`
}

// Zap is a single received micropayment receipt for a track.
type Zap struct {
	ID         string    `json:"id" db:"id"`
	TrackID    string    `json:"track_id" db:"track_id"`
	SenderID   string    `json:"sender_id" db:"sender_id"`
	AmountSats int64     `json:"amount_sats" db:"amount_sats"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HasImage reports whether the release carries a cover image.
func (r Release) HasImage() bool {
	return r.ImageURL != ""
}

// EffectiveTime is the timestamp used for release ordering: createdAt,
// falling back to publishDate, falling back to the zero time.
func (r Release) EffectiveTime() time.Time {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.PublishDate
}
