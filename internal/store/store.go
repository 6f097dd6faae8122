package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/zapwave/zapwave/pkg/catalog"
	"github.com/zapwave/zapwave/pkg/ingest"
	"github.com/zapwave/zapwave/pkg/splits"
)

// ChartEntry is one slot of the persisted trending chart.
type ChartEntry struct {
	Position int           `db:"position" json:"position"`
	Score    float64       `db:"score" json:"score"`
	BuiltAt  time.Time     `db:"built_at" json:"built_at"`
	Notified bool          `db:"notified" json:"notified"`
	Track    catalog.Track `db:"-" json:"track"`
}

// TrackListOpts controls track listing.
type TrackListOpts struct {
	ArtistID string
	Since    time.Time
	Limit    int
}

// ReleaseListOpts controls release listing.
type ReleaseListOpts struct {
	ArtistID   string
	WithTracks bool
	Limit      int
}

// Store is the persistence interface: a local cache of resolved protocol
// events plus the derived trending chart and split configuration.
type Store interface {
	UpsertTrack(ctx context.Context, t *catalog.Track) error
	UpsertTracks(ctx context.Context, tracks []catalog.Track) error
	GetTrack(ctx context.Context, id string) (*catalog.Track, error)
	ListTracks(ctx context.Context, opts TrackListOpts) ([]catalog.Track, error)

	UpsertRelease(ctx context.Context, r *catalog.Release) error
	GetRelease(ctx context.Context, id string) (*catalog.Release, error)
	ListReleases(ctx context.Context, opts ReleaseListOpts) ([]catalog.Release, error)

	AddZap(ctx context.Context, z catalog.Zap) error
	ApplyBatch(ctx context.Context, b ingest.Batch) error
	CountTracksByArtist(ctx context.Context) (map[string]int, error)

	ReplaceChart(ctx context.Context, entries []ChartEntry) error
	ListChart(ctx context.Context, limit int) ([]ChartEntry, error)
	MarkNotified(ctx context.Context, position int) error

	SetSplits(ctx context.Context, artistID string, recipients []splits.Recipient) error
	GetSplits(ctx context.Context, artistID string) ([]splits.Recipient, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertTrack(ctx context.Context, t *catalog.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, artist_id, title, audio_url, duration_sec, zap_count, total_sats, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			audio_url = excluded.audio_url,
			duration_sec = excluded.duration_sec,
			created_at = excluded.created_at
	`, t.ID, t.ArtistID, t.Title, t.AudioURL, t.DurationSec, t.ZapCount, t.TotalSats, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertTracks(ctx context.Context, tracks []catalog.Track) error {
	for i := range tracks {
		if err := s.UpsertTrack(ctx, &tracks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetTrack(ctx context.Context, id string) (*catalog.Track, error) {
	var t catalog.Track
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tracks WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTracks(ctx context.Context, opts TrackListOpts) ([]catalog.Track, error) {
	query := "SELECT * FROM tracks WHERE 1=1"
	var args []any

	if opts.ArtistID != "" {
		query += " AND artist_id = ?"
		args = append(args, opts.ArtistID)
	}
	if !opts.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var tracks []catalog.Track
	if err := s.db.SelectContext(ctx, &tracks, query, args...); err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

func (s *SQLiteStore) UpsertRelease(ctx context.Context, r *catalog.Release) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert release %s: %w", r.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO releases (id, artist_id, title, image_url, created_at, publish_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			image_url = excluded.image_url,
			created_at = excluded.created_at,
			publish_date = excluded.publish_date
	`, r.ID, r.ArtistID, r.Title, r.ImageURL, r.CreatedAt, r.PublishDate)
	if err != nil {
		return fmt.Errorf("upsert release %s: %w", r.ID, err)
	}

	// Track order is author-assigned: the link table is replaced whole so
	// positions always mirror the event.
	if _, err := tx.ExecContext(ctx, "DELETE FROM release_tracks WHERE release_id = ?", r.ID); err != nil {
		return fmt.Errorf("clear release tracks %s: %w", r.ID, err)
	}
	for i, t := range r.Tracks {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO release_tracks (release_id, track_id, position) VALUES (?, ?, ?)",
			r.ID, t.ID, i)
		if err != nil {
			return fmt.Errorf("link release %s track %s: %w", r.ID, t.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRelease(ctx context.Context, id string) (*catalog.Release, error) {
	var r catalog.Release
	if err := s.db.GetContext(ctx, &r, "SELECT * FROM releases WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("get release %s: %w", id, err)
	}
	if err := s.loadReleaseTracks(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ListReleases(ctx context.Context, opts ReleaseListOpts) ([]catalog.Release, error) {
	query := "SELECT * FROM releases WHERE 1=1"
	var args []any

	if opts.ArtistID != "" {
		query += " AND artist_id = ?"
		args = append(args, opts.ArtistID)
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var releases []catalog.Release
	if err := s.db.SelectContext(ctx, &releases, query, args...); err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	if opts.WithTracks {
		for i := range releases {
			if err := s.loadReleaseTracks(ctx, &releases[i]); err != nil {
				return nil, err
			}
		}
	}
	return releases, nil
}

func (s *SQLiteStore) loadReleaseTracks(ctx context.Context, r *catalog.Release) error {
	var tracks []catalog.Track
	err := s.db.SelectContext(ctx, &tracks, `
		SELECT t.* FROM tracks t
		JOIN release_tracks rt ON rt.track_id = t.id
		WHERE rt.release_id = ?
		ORDER BY rt.position
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load release tracks %s: %w", r.ID, err)
	}
	r.Tracks = tracks
	return nil
}

// AddZap records a zap receipt and folds its amount into the track's
// aggregate counters. Replayed zap IDs are ignored, so aggregates count
// each receipt once.
func (s *SQLiteStore) AddZap(ctx context.Context, z catalog.Zap) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add zap %s: %w", z.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO zaps (id, track_id, sender_id, amount_sats, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, z.ID, z.TrackID, z.SenderID, z.AmountSats, z.CreatedAt)
	if err != nil {
		return fmt.Errorf("add zap %s: %w", z.ID, err)
	}

	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		return tx.Commit() // duplicate receipt
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tracks SET zap_count = zap_count + 1, total_sats = total_sats + ?
		WHERE id = ?
	`, z.AmountSats, z.TrackID)
	if err != nil {
		return fmt.Errorf("apply zap %s to track %s: %w", z.ID, z.TrackID, err)
	}

	return tx.Commit()
}

// ApplyBatch writes one ingest batch to the cache: tracks first so release
// links and zaps land on known rows, then releases, then zap receipts.
// Zaps for tracks not (yet) in the cache are dropped.
func (s *SQLiteStore) ApplyBatch(ctx context.Context, b ingest.Batch) error {
	if err := s.UpsertTracks(ctx, b.Tracks); err != nil {
		return err
	}
	for i := range b.Releases {
		if err := s.UpsertRelease(ctx, &b.Releases[i]); err != nil {
			return err
		}
	}
	for _, z := range b.Zaps {
		if _, err := s.GetTrack(ctx, z.TrackID); err != nil {
			if IsNotFound(err) {
				continue
			}
			return err
		}
		if err := s.AddZap(ctx, z); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CountTracksByArtist(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT artist_id, COUNT(*) as cnt FROM tracks GROUP BY artist_id")
	if err != nil {
		return nil, fmt.Errorf("count tracks by artist: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var artist string
		var cnt int
		if err := rows.Scan(&artist, &cnt); err != nil {
			return nil, err
		}
		counts[artist] = cnt
	}
	return counts, nil
}

func (s *SQLiteStore) ReplaceChart(ctx context.Context, entries []ChartEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace chart: %w", err)
	}
	defer tx.Rollback()

	// Carry notified flags forward so a rebuild does not re-fire webhooks
	// for tracks already on the chart.
	notified := make(map[string]bool)
	rows, err := tx.QueryxContext(ctx, "SELECT track_id, notified FROM chart_entries")
	if err != nil {
		return fmt.Errorf("read chart flags: %w", err)
	}
	for rows.Next() {
		var trackID string
		var n bool
		if err := rows.Scan(&trackID, &n); err != nil {
			rows.Close()
			return err
		}
		notified[trackID] = n
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chart_entries"); err != nil {
		return fmt.Errorf("clear chart: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chart_entries (position, track_id, score, built_at, notified)
			VALUES (?, ?, ?, ?, ?)
		`, e.Position, e.Track.ID, e.Score, e.BuiltAt, notified[e.Track.ID])
		if err != nil {
			return fmt.Errorf("insert chart entry %d: %w", e.Position, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListChart(ctx context.Context, limit int) ([]ChartEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryxContext(ctx, `
		SELECT c.position, c.score, c.built_at, c.notified,
		       t.id, t.artist_id, t.title, t.audio_url, t.duration_sec,
		       t.zap_count, t.total_sats, t.created_at
		FROM chart_entries c
		JOIN tracks t ON t.id = c.track_id
		ORDER BY c.position
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list chart: %w", err)
	}
	defer rows.Close()

	var entries []ChartEntry
	for rows.Next() {
		var e ChartEntry
		err := rows.Scan(&e.Position, &e.Score, &e.BuiltAt, &e.Notified,
			&e.Track.ID, &e.Track.ArtistID, &e.Track.Title, &e.Track.AudioURL,
			&e.Track.DurationSec, &e.Track.ZapCount, &e.Track.TotalSats, &e.Track.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan chart entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) MarkNotified(ctx context.Context, position int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE chart_entries SET notified = 1 WHERE position = ?", position)
	if err != nil {
		return fmt.Errorf("mark notified %d: %w", position, err)
	}
	return nil
}

func (s *SQLiteStore) SetSplits(ctx context.Context, artistID string, recipients []splits.Recipient) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set splits %s: %w", artistID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM split_recipients WHERE artist_id = ?", artistID); err != nil {
		return fmt.Errorf("clear splits %s: %w", artistID, err)
	}
	for i, r := range recipients {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO split_recipients (artist_id, position, name, address, percent)
			VALUES (?, ?, ?, ?, ?)
		`, artistID, i, r.Name, r.Address, r.Percent)
		if err != nil {
			return fmt.Errorf("insert split %s/%d: %w", artistID, i, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetSplits(ctx context.Context, artistID string) ([]splits.Recipient, error) {
	var recipients []splits.Recipient
	err := s.db.SelectContext(ctx, &recipients, `
		SELECT name, address, percent FROM split_recipients
		WHERE artist_id = ? ORDER BY position
	`, artistID)
	if err != nil {
		return nil, fmt.Errorf("get splits %s: %w", artistID, err)
	}
	return recipients, nil
}

// IsNotFound reports whether err is a missing-row lookup error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
