package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosync/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func qty(v float64) *float64 { return &v }

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT '?' FROM t WHERE a = $1", Rebind("SELECT '?' FROM t WHERE a = ?"))
}

func TestUpsertMOPreservesFetchedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(6 * time.Hour)

	first, err := db.UpsertMO(ctx, &MOEntry{
		MONumber: "MO/00001", SKUName: "Liquid A", Quantity: qty(100), UoM: "Units",
		Note: "liquid line 1", SourceCreatedAt: created,
	}, t1)
	require.NoError(t, err)
	assert.Equal(t, t1, first.FetchedAt)
	assert.Equal(t, t1, first.LastUpdated)

	second, err := db.UpsertMO(ctx, &MOEntry{
		MONumber: "MO/00001", SKUName: "Liquid B", Quantity: qty(250.5), UoM: "Units",
		Note: "liquid line 2", SourceCreatedAt: created,
	}, t2)
	require.NoError(t, err)
	assert.Equal(t, "Liquid B", second.SKUName)
	require.NotNil(t, second.Quantity)
	assert.Equal(t, 250.5, *second.Quantity)
	assert.Equal(t, t1, second.FetchedAt)
	assert.Equal(t, t2, second.LastUpdated)

	all, err := db.ListMOs(ctx, MOFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertMONullQuantity(t *testing.T) {
	db := openTestDB(t)
	e, err := db.UpsertMO(context.Background(), &MOEntry{MONumber: "MO/2", SourceCreatedAt: time.Now()}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, e.Quantity)
}

func TestGetMONotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetMO(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListMOsFilterAndOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	seed := []MOEntry{
		{MONumber: "MO/1", Note: "LIQUID batch", SourceCreatedAt: now.Add(-1 * 24 * time.Hour)},
		{MONumber: "MO/2", Note: "Cartirdge refill", SourceCreatedAt: now.Add(-2 * 24 * time.Hour)},
		{MONumber: "MO/3", Note: "liquid old", SourceCreatedAt: now.Add(-9 * 24 * time.Hour)},
		{MONumber: "MO/4", Note: "device", SourceCreatedAt: now.Add(-3 * time.Hour)},
	}
	for i := range seed {
		_, err := db.UpsertMO(ctx, &seed[i], now)
		require.NoError(t, err)
	}

	liquid, err := db.ListMOs(ctx, MOFilter{NotePatterns: []string{"liquid"}, CreatedSince: now.Add(-7 * 24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, liquid, 1)
	assert.Equal(t, "MO/1", liquid[0].MONumber)

	cart, err := db.ListMOs(ctx, MOFilter{NotePatterns: []string{"cartridge", "cartirdge", "cartrige"}})
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "MO/2", cart[0].MONumber)

	all, err := db.ListMOs(ctx, MOFilter{})
	require.NoError(t, err)
	var keys []string
	for _, e := range all {
		keys = append(keys, e.MONumber)
	}
	assert.Equal(t, []string{"MO/4", "MO/1", "MO/2", "MO/3"}, keys)

	limited, err := db.ListMOs(ctx, MOFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListMOsTreatsWildcardsLiterally(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	for _, e := range []MOEntry{
		{MONumber: "MO/1", Note: "axb", SourceCreatedAt: now},
		{MONumber: "MO/2", Note: "A_B refill", SourceCreatedAt: now},
		{MONumber: "MO/3", Note: "100% liquid", SourceCreatedAt: now},
		{MONumber: "MO/4", Note: "100 liquid", SourceCreatedAt: now},
	} {
		e := e
		_, err := db.UpsertMO(ctx, &e, now)
		require.NoError(t, err)
	}

	underscore, err := db.ListMOs(ctx, MOFilter{NotePatterns: []string{"a_b"}})
	require.NoError(t, err)
	require.Len(t, underscore, 1)
	assert.Equal(t, "MO/2", underscore[0].MONumber)

	percent, err := db.ListMOs(ctx, MOFilter{NotePatterns: []string{"0% l"}})
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "MO/3", percent[0].MONumber)

	assert.Equal(t, `a\_b\%`, escapeLike(`a_b%`))
	assert.Equal(t, `c:\\tmp`, escapeLike(`c:\tmp`))
}

func TestDeleteMOsCreatedBefore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC)
	for _, e := range []MOEntry{
		{MONumber: "old", SourceCreatedAt: cutoff.Add(-time.Second)},
		{MONumber: "edge", SourceCreatedAt: cutoff},
		{MONumber: "new", SourceCreatedAt: cutoff.Add(time.Hour)},
	} {
		e := e
		_, err := db.UpsertMO(ctx, &e, time.Now())
		require.NoError(t, err)
	}

	keys, err := db.DeleteMOsCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, keys)

	again, err := db.DeleteMOsCreatedBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, again)

	left, err := db.ListMOs(ctx, MOFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestMOStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * 24 * time.Hour)

	empty, err := db.MOStats(ctx, cutoff, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Nil(t, empty.OldestCreatedAt)

	for _, e := range []MOEntry{
		{MONumber: "a", SourceCreatedAt: now.Add(-8 * 24 * time.Hour)},
		{MONumber: "b", SourceCreatedAt: now.Add(-6 * 24 * time.Hour)},
		{MONumber: "c", SourceCreatedAt: now.Add(-time.Hour)},
	} {
		e := e
		_, err := db.UpsertMO(ctx, &e, now)
		require.NoError(t, err)
	}

	s, err := db.MOStats(ctx, cutoff, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.WithinWindow)
	assert.Equal(t, 1, s.OutsideWindow)
	assert.Equal(t, 3, s.FetchedRecently)
	require.NotNil(t, s.OldestCreatedAt)
	assert.Equal(t, now.Add(-8*24*time.Hour), *s.OldestCreatedAt)
	assert.Equal(t, now.Add(-time.Hour), *s.NewestCreatedAt)
}

func TestMOStatusUpsertAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertMOStatus(ctx, &MOStatus{MONumber: "MO/1", Status: "active", UpdatedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.UpsertMOStatus(ctx, &MOStatus{MONumber: "MO/1", Status: "completed", TargetQty: qty(40), UpdatedAt: now}))
	require.NoError(t, db.UpsertMOStatus(ctx, &MOStatus{MONumber: "MO/old", Status: "active", UpdatedAt: now.Add(-30 * 24 * time.Hour)}))

	list, err := db.ListMOStatusesSince(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0].Status)
	assert.Equal(t, 40.0, *list[0].TargetQty)
}

func TestJobRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.AppendJobRun(ctx, &JobRun{RunID: "r1", Job: "sync", Trigger: "timer", StartedAt: time.Now(), Duration: 1500 * time.Millisecond, Detail: "updated 3"}))
	require.NoError(t, db.AppendJobRun(ctx, &JobRun{RunID: "r2", Job: "reap", Trigger: "manual", StartedAt: time.Now(), Skipped: true}))

	runs, err := db.ListJobRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "reap", runs[0].Job)
	assert.True(t, runs[0].Skipped)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
}
