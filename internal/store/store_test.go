package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/seq"
)

// setupTestStore creates a store backed by a temp-dir SQLite file.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	set := &seq.BreakSet{
		StartLine: 1,
		EndLine:   2,
		Relative: []seq.RelativeEvent{
			{
				Channel: 1, Line: 1, Delay: 0, Distance: 512,
				Note: 60, Instrument: 5,
				Volume: seq.EmptyVolume, Panning: seq.EmptyPanning,
				EffectID: seq.EmptyEffect, EffectValue: seq.EmptyEffect,
			},
		},
	}
	require.NoError(t, reg.AssignBreakSet('A', set, 9))
	return reg
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := setupTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := setupTestStore(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

// TestOpen_Reopen verifies opening an existing database is safe: the
// schema apply and migrations are idempotent.
func TestOpen_Reopen(t *testing.T) {
	path := t.TempDir() + "/test.db"

	s1, err := Open(path)
	require.NoError(t, err)

	_, inserted, err := s1.SaveSnapshot(context.Background(), testRegistry(t), "first")
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	records, err := s2.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveSnapshot_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	fp1, inserted, err := s.SaveSnapshot(ctx, reg, "take one")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, fp1)

	// Same registry contents hash identically; nothing new is stored.
	fp2, inserted, err := s.SaveSnapshot(ctx, reg, "take two")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, fp1, fp2)

	records, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "take one", records[0].Label)
	assert.Equal(t, 1, records[0].Symbols)
}

func TestSaveSnapshot_ChangedRegistryInsertsNewRow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	fp1, _, err := s.SaveSnapshot(ctx, reg, "")
	require.NoError(t, err)

	reg.Remove('A')
	fp2, inserted, err := s.SaveSnapshot(ctx, reg, "")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEqual(t, fp1, fp2)
}

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	fp, _, err := s.SaveSnapshot(ctx, reg, "")
	require.NoError(t, err)

	restored, err := s.LoadSnapshot(ctx, fp)
	require.NoError(t, err)

	sym, err := restored.Get('A')
	require.NoError(t, err)
	assert.Equal(t, registry.KindBreakpointDerived, sym.Kind)
	assert.Equal(t, 9, sym.Instrument)
	require.Len(t, sym.Set.Relative, 1)
	assert.Equal(t, 512, sym.Set.Relative[0].Distance)

	// Restoring must preserve the fingerprint.
	restoredFp, err := restored.Snapshot().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp, restoredFp)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "no-such-fingerprint")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestSnapshot_PicksNewest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	reg := testRegistry(t)

	_, _, err := s.SaveSnapshot(ctx, reg, "")
	require.NoError(t, err)

	set := &seq.BreakSet{Relative: []seq.RelativeEvent{
		{
			Channel: 2, Line: 1, Delay: 0, Distance: 256,
			Note: 62, Instrument: 5,
			Volume: seq.EmptyVolume, Panning: seq.EmptyPanning,
			EffectID: seq.EmptyEffect, EffectValue: seq.EmptyEffect,
		},
	}}
	require.NoError(t, reg.AssignBreakSet('B', set, 5))
	fp2, _, err := s.SaveSnapshot(ctx, reg, "")
	require.NoError(t, err)

	restored, fp, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp2, fp)
	assert.Equal(t, 2, restored.Len())
}

func TestRecordPlacement_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := PlacementRecord{
		OpID:             "op-1",
		Symbol:           "A",
		Overflow:         "extend",
		Overwrite:        "sum",
		InstrumentSource: "embedded",
		StartLine:        3,
		NextLine:         7,
		Placed:           4,
	}
	require.NoError(t, s.RecordPlacement(ctx, rec))
	require.NoError(t, s.RecordPlacement(ctx, rec))

	records, err := s.ListPlacements(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Symbol)
	assert.Equal(t, 7, records[0].NextLine)
	assert.False(t, records[0].Transitioned)
	assert.NotEmpty(t, records[0].CreatedAt)
}

func TestListPlacements_OrderAndLimit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"op-3", "op-1", "op-2"} {
		require.NoError(t, s.RecordPlacement(ctx, PlacementRecord{
			OpID:             id,
			Overflow:         "extend",
			Overwrite:        "sum",
			InstrumentSource: "embedded",
		}))
	}

	records, err := s.ListPlacements(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Same created_at second resolves by op_id collation.
	if records[0].CreatedAt == records[2].CreatedAt {
		assert.Equal(t, "op-1", records[0].OpID)
		assert.Equal(t, "op-3", records[2].OpID)
	}

	limited, err := s.ListPlacements(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListPlacements_EmptyIsNotNil(t *testing.T) {
	s := setupTestStore(t)

	records, err := s.ListPlacements(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
