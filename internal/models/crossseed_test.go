package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/seedcross/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "seedcross.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestInstance(t *testing.T, db *database.DB) *Instance {
	t.Helper()
	inst, err := NewInstanceStore(db).Create(context.Background(), &Instance{
		Label: "test",
		Host:  "http://localhost:8080",
	})
	require.NoError(t, err)
	return inst
}

func TestCrossSeedConfigUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inst := createTestInstance(t, db)
	store := NewCrossSeedConfigStore(db)

	_, err := store.Get(ctx, inst.ID)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	cfg, err := store.Upsert(ctx, &CrossSeedConfig{
		InstanceID:    inst.ID,
		Enabled:       true,
		IntervalHours: 12,
		DryRun:        true,
	})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 12, cfg.IntervalHours)
	assert.Equal(t, DefaultCategorySuffix, cfg.CategorySuffix)
	assert.Equal(t, DefaultTag, cfg.Tag)

	// Update in place, no second row.
	cfg.Enabled = false
	cfg.IntervalHours = 48
	cfg, err = store.Upsert(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 48, cfg.IntervalHours)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCrossSeedConfigIntervalInvariant(t *testing.T) {
	db := newTestDB(t)
	inst := createTestInstance(t, db)
	store := NewCrossSeedConfigStore(db)

	_, err := store.Upsert(context.Background(), &CrossSeedConfig{
		InstanceID:    inst.ID,
		IntervalHours: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intervalHours")
}

func TestSearcheeUpsertKeyedByInstanceAndHash(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inst := createTestInstance(t, db)
	store := NewSearcheeStore(db)

	id1, err := store.Upsert(ctx, &Searchee{
		InstanceID:  inst.ID,
		TorrentHash: "ABCDEF0123456789",
		TorrentName: "Some.Release",
		TotalSize:   1020,
		FileCount:   2,
		FileSizes:   SerializeFileSizes([]int64{1000, 20}),
	})
	require.NoError(t, err)

	// Same (instance, hash) upserts into the same row; hash is normalized.
	id2, err := store.Upsert(ctx, &Searchee{
		InstanceID:  inst.ID,
		TorrentHash: "abcdef0123456789",
		TorrentName: "Some.Release",
		TotalSize:   1020,
		FileCount:   2,
		FileSizes:   SerializeFileSizes([]int64{20, 1000}),
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	se, err := store.GetByHash(ctx, inst.ID, "ABCDEF0123456789")
	require.NoError(t, err)
	assert.Equal(t, "[20,1000]", se.FileSizes)
	assert.False(t, se.LastSearched.Before(se.FirstSearched))
}

func TestSearcheeHistoryWithDecisionCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inst := createTestInstance(t, db)
	searchees := NewSearcheeStore(db)
	decisions := NewDecisionStore(db)

	id, err := searchees.Upsert(ctx, &Searchee{
		InstanceID:  inst.ID,
		TorrentHash: "aaaa",
		TorrentName: "A",
	})
	require.NoError(t, err)

	require.NoError(t, decisions.Upsert(ctx, &Decision{
		SearcheeID:    id,
		GUID:          "guid-1",
		CandidateName: "A alt",
		Decision:      "SIZE_MISMATCH",
	}))
	require.NoError(t, decisions.Upsert(ctx, &Decision{
		SearcheeID:    id,
		GUID:          "guid-2",
		CandidateName: "A alt 2",
		Decision:      "MATCH",
	}))

	history, total, err := searchees.History(ctx, inst.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].DecisionCount)
}

func TestDecisionUpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inst := createTestInstance(t, db)
	searchees := NewSearcheeStore(db)
	store := NewDecisionStore(db)

	searcheeID, err := searchees.Upsert(ctx, &Searchee{
		InstanceID:  inst.ID,
		TorrentHash: "bbbb",
		TorrentName: "B",
	})
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, &Decision{
		SearcheeID:    searcheeID,
		GUID:          "guid-x",
		CandidateName: "B candidate",
		Decision:      "SIZE_MISMATCH",
	}))

	hash := "deadbeef"
	require.NoError(t, store.Upsert(ctx, &Decision{
		SearcheeID:    searcheeID,
		GUID:          "guid-x",
		InfoHash:      &hash,
		CandidateName: "B candidate",
		Decision:      "MATCH_SIZE_ONLY",
	}))

	d, err := store.Get(ctx, searcheeID, "guid-x")
	require.NoError(t, err)
	assert.Equal(t, "MATCH_SIZE_ONLY", d.Decision)
	require.NotNil(t, d.InfoHash)
	assert.Equal(t, "deadbeef", *d.InfoHash)

	list, err := store.ListBySearchee(ctx, searcheeID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHistoryClearCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inst := createTestInstance(t, db)
	searchees := NewSearcheeStore(db)
	decisions := NewDecisionStore(db)

	id, err := searchees.Upsert(ctx, &Searchee{
		InstanceID:  inst.ID,
		TorrentHash: "cccc",
		TorrentName: "C",
	})
	require.NoError(t, err)
	require.NoError(t, decisions.Upsert(ctx, &Decision{
		SearcheeID:    id,
		GUID:          "guid-y",
		CandidateName: "C candidate",
		Decision:      "FILE_COUNT_MISMATCH",
	}))

	deleted, err := searchees.DeleteByInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := decisions.ListBySearchee(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
