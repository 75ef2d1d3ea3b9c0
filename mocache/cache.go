// Package mocache is the rolling-window store of manufacturing orders. SQL is
// the source of truth; an optional mirror (Redis) is written through on every
// mutation and consulted first on keyed reads.
package mocache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"mosync/store"
)

// ErrUnsupportedField is returned when eviction is asked to compare a field
// other than the source creation time.
var ErrUnsupportedField = errors.New("eviction only supports source_created_at")

type Option func(*Cache)

func WithMirror(m Mirror) Option {
	return func(c *Cache) {
		if m != nil {
			c.mirror = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache provides write-through MO state: SQL first, then the mirror.
type Cache struct {
	db        *store.DB
	mirror    Mirror
	retention time.Duration
	now       func() time.Time

	mu sync.Mutex // serializes mutations so SQL and mirror agree

	// set when the mirror may hold entries SQL no longer agrees with;
	// keyed reads bypass it until RebuildMirror succeeds
	dirty atomic.Bool
}

func New(db *store.DB, retention time.Duration, opts ...Option) *Cache {
	c := &Cache{db: db, mirror: nopMirror{}, retention: retention, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Retention() time.Duration { return c.retention }

// Cutoff is the oldest source creation time inside the retention window.
func (c *Cache) Cutoff() time.Time { return c.now().Add(-c.retention) }

// Upsert inserts or replaces key. fetched_at keeps its first value.
func (c *Cache) Upsert(ctx context.Context, key string, a Attrs) (Entry, error) {
	if key == "" {
		return Entry{}, errors.New("upsert: empty mo number")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.db.UpsertMO(ctx, &store.MOEntry{
		MONumber:        key,
		SKUName:         a.SKUName,
		Quantity:        a.Quantity,
		UoM:             a.UoM,
		Note:            a.Note,
		SourceCreatedAt: a.SourceCreatedAt,
	}, c.now())
	if err != nil {
		return Entry{}, err
	}
	e := entryFromRow(row)
	if err := c.mirror.Put(ctx, e); err != nil {
		log.Printf("mocache: mirror put %s: %v", key, err)
		if err := c.mirror.Delete(ctx, key); err != nil {
			log.Printf("mocache: mirror drop %s: %v (mirror bypassed until rebuilt)", key, err)
			c.dirty.Store(true)
		}
	}
	return e, nil
}

// Get returns the entry for key, or store.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	if !c.dirty.Load() {
		if e, err := c.mirror.Get(ctx, key); err == nil && e != nil {
			return e, nil
		}
	}
	row, err := c.db.GetMO(ctx, key)
	if err != nil {
		return nil, err
	}
	e := entryFromRow(row)
	return &e, nil
}

// ListWhere returns entries matching q, newest source creation first.
func (c *Cache) ListWhere(ctx context.Context, q Query) ([]Entry, error) {
	rows, err := c.db.ListMOs(ctx, store.MOFilter{
		NotePatterns: Patterns(q.Category),
		CreatedSince: q.Since,
		Limit:        q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list mo cache: %w", err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = entryFromRow(r)
	}
	return out, nil
}

// InWindow is the canonical consumer query: category within retention.
func (c *Cache) InWindow(ctx context.Context, category string) ([]Entry, error) {
	return c.ListWhere(ctx, Query{Category: category, Since: c.Cutoff()})
}

// EvictOlderThan deletes every entry whose field is strictly before cutoff
// and returns how many were removed.
func (c *Cache) EvictOlderThan(ctx context.Context, cutoff time.Time, field Field) (int64, error) {
	if field != FieldSourceCreatedAt {
		return 0, fmt.Errorf("evict by %q: %w", field, ErrUnsupportedField)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.db.DeleteMOsCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		if err := c.mirror.Delete(ctx, keys...); err != nil {
			log.Printf("mocache: mirror delete %d keys: %v (mirror bypassed until rebuilt)", len(keys), err)
			c.dirty.Store(true)
		}
	}
	return int64(len(keys)), nil
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	in, err := c.Inspect(ctx)
	if err != nil {
		return Stats{}, err
	}
	return in.Stats, nil
}

// Inspect returns counts against the retention window plus the source
// creation range.
func (c *Cache) Inspect(ctx context.Context) (Inspection, error) {
	now := c.now()
	s, err := c.db.MOStats(ctx, now.Add(-c.retention), now.Add(-24*time.Hour))
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{
		Stats: Stats{
			Total:         s.Total,
			WithinWindow:  s.WithinWindow,
			OutsideWindow: s.OutsideWindow,
		},
		OldestSourceCreatedAt: s.OldestCreatedAt,
		NewestSourceCreatedAt: s.NewestCreatedAt,
		FetchedLast24h:        s.FetchedRecently,
		RetentionDays:         int(c.retention / (24 * time.Hour)),
	}, nil
}

// MirrorStale reports whether keyed reads are bypassing the mirror.
func (c *Cache) MirrorStale() bool { return c.dirty.Load() }

// RebuildMirror reloads the mirror from SQL. Called on startup.
func (c *Cache) RebuildMirror(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mirror.Reset(ctx); err != nil {
		c.dirty.Store(true)
		return fmt.Errorf("reset mirror: %w", err)
	}
	rows, err := c.db.ListMOs(ctx, store.MOFilter{})
	if err != nil {
		c.dirty.Store(true)
		return err
	}
	// a failed put leaves a miss, which falls through to SQL
	for _, r := range rows {
		if err := c.mirror.Put(ctx, entryFromRow(r)); err != nil {
			log.Printf("mocache: mirror put %s: %v", r.MONumber, err)
		}
	}
	c.dirty.Store(false)
	log.Printf("mocache: mirrored %d entries", len(rows))
	return nil
}

// RepairMirror rebuilds the mirror if an earlier write left it stale.
func (c *Cache) RepairMirror(ctx context.Context) error {
	if !c.dirty.Load() {
		return nil
	}
	return c.RebuildMirror(ctx)
}
