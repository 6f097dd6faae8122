package ingest

import (
	"context"

	"github.com/zapwave/zapwave/pkg/catalog"
)

// Batch is the standardized output of one fetch from any source: resolved
// tracks, releases, and zap receipts ready for the local cache.
type Batch struct {
	Tracks   []catalog.Track
	Releases []catalog.Release
	Zaps     []catalog.Zap
}

// Len returns the total number of records in the batch.
func (b Batch) Len() int {
	return len(b.Tracks) + len(b.Releases) + len(b.Zaps)
}

// Source is the interface every collector must implement.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Batch, error)
}
