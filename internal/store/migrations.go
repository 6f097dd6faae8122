package store

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
    id           TEXT PRIMARY KEY,
    artist_id    TEXT NOT NULL,
    title        TEXT NOT NULL,
    audio_url    TEXT NOT NULL DEFAULT '',
    duration_sec INTEGER NOT NULL DEFAULT 0,
    zap_count    INTEGER NOT NULL DEFAULT 0,
    total_sats   INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_id);
CREATE INDEX IF NOT EXISTS idx_tracks_created ON tracks(created_at);

CREATE TABLE IF NOT EXISTS releases (
    id           TEXT PRIMARY KEY,
    artist_id    TEXT NOT NULL,
    title        TEXT NOT NULL,
    image_url    TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL,
    publish_date DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_releases_artist ON releases(artist_id);
CREATE INDEX IF NOT EXISTS idx_releases_created ON releases(created_at);

CREATE TABLE IF NOT EXISTS release_tracks (
    release_id TEXT NOT NULL REFERENCES releases(id),
    track_id   TEXT NOT NULL REFERENCES tracks(id),
    position   INTEGER NOT NULL,
    PRIMARY KEY (release_id, track_id)
);

CREATE INDEX IF NOT EXISTS idx_release_tracks_release ON release_tracks(release_id);

CREATE TABLE IF NOT EXISTS zaps (
    id          TEXT PRIMARY KEY,
    track_id    TEXT NOT NULL REFERENCES tracks(id),
    sender_id   TEXT NOT NULL DEFAULT '',
    amount_sats INTEGER NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_zaps_track ON zaps(track_id);
CREATE INDEX IF NOT EXISTS idx_zaps_created ON zaps(created_at);

CREATE TABLE IF NOT EXISTS chart_entries (
    position   INTEGER PRIMARY KEY,
    track_id   TEXT NOT NULL REFERENCES tracks(id),
    score      REAL NOT NULL DEFAULT 0,
    built_at   DATETIME NOT NULL,
    notified   BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS split_recipients (
    artist_id TEXT NOT NULL,
    position  INTEGER NOT NULL,
    name      TEXT NOT NULL DEFAULT '',
    address   TEXT NOT NULL,
    percent   REAL NOT NULL,
    PRIMARY KEY (artist_id, position)
);
`
