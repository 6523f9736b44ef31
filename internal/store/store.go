package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"translation-backend/pkg/models"
)

// ErrNotFound is returned for ids that were never written or have already
// been reclaimed. Callers must treat both as "unknown id".
var ErrNotFound = errors.New("job record not found")

// CacheEntry is a content-addressed translation written alongside a batch
// of completed job records.
type CacheEntry struct {
	Fingerprint string
	Text        string
	TTL         time.Duration
}

// ResultStore holds job records keyed by request id and a secondary
// content cache keyed by (text, language) fingerprint. Implementations must
// be safe for concurrent use.
type ResultStore interface {
	// PutInitial writes a fresh record in state queued. Must complete
	// before the corresponding task is enqueued.
	PutInitial(ctx context.Context, id uuid.UUID) error

	// GetStatus returns ErrNotFound for unknown or reclaimed ids.
	GetStatus(ctx context.Context, id uuid.UUID) (models.JobRecord, error)

	PutTerminal(ctx context.Context, id uuid.UUID, record models.JobRecord) error

	// DeleteIfTerminal removes the record once a poller has observed a
	// terminal state. Records that never reach a poller expire on their own.
	DeleteIfTerminal(ctx context.Context, id uuid.UUID) error

	// ExpireIfTerminal shortens the record's remaining lifetime to the
	// terminal TTL once a poller has observed a terminal state. The softer
	// alternative to DeleteIfTerminal: the result stays pollable for a
	// grace period instead of vanishing on first read.
	ExpireIfTerminal(ctx context.Context, id uuid.UUID) error

	// WriteBatch applies all record writes and cache entries for one
	// dispatcher pass together.
	WriteBatch(ctx context.Context, records map[uuid.UUID]models.JobRecord, entries []CacheEntry) error

	// GetCached returns the cached translation for a fingerprint, or
	// ok=false when absent or expired.
	GetCached(ctx context.Context, fingerprint string) (text string, ok bool, err error)

	PutCached(ctx context.Context, fingerprint, text string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
