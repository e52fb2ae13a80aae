package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/slabtone/rebeat/internal/registry"
)

// SnapshotRecord is one stored snapshot row, document included.
type SnapshotRecord struct {
	ID          int64
	Fingerprint string
	Label       string
	Symbols     int
	Document    string
	CreatedAt   string
}

// LoadSnapshot restores a registry from the snapshot with the given
// fingerprint. Returns ErrNotFound when no such snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context, fingerprint string) (*registry.Registry, error) {
	rec, err := s.snapshotWhere(ctx, "fingerprint = ?", fingerprint)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(rec)
}

// LatestSnapshot restores the registry from the most recently stored
// snapshot. Returns ErrNotFound on an empty store.
func (s *Store) LatestSnapshot(ctx context.Context) (*registry.Registry, string, error) {
	rec, err := s.snapshotWhere(ctx, "1 = 1")
	if err != nil {
		return nil, "", err
	}
	reg, err := decodeSnapshot(rec)
	if err != nil {
		return nil, "", err
	}
	return reg, rec.Fingerprint, nil
}

func (s *Store) snapshotWhere(ctx context.Context, where string, args ...any) (SnapshotRecord, error) {
	var rec SnapshotRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, label, symbols, document, created_at
		FROM snapshots
		WHERE `+where+`
		ORDER BY id DESC
		LIMIT 1
	`, args...).Scan(&rec.ID, &rec.Fingerprint, &rec.Label, &rec.Symbols, &rec.Document, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("query snapshot: %w", err)
	}
	return rec, nil
}

func decodeSnapshot(rec SnapshotRecord) (*registry.Registry, error) {
	snap, err := registry.DecodeYAML([]byte(rec.Document))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", rec.Fingerprint, err)
	}
	reg, err := registry.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", rec.Fingerprint, err)
	}
	return reg, nil
}

// ListSnapshots returns snapshot metadata (without documents), newest
// first. Returns an empty slice (not nil) on an empty store.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, label, symbols, '', created_at
		FROM snapshots
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0)
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.Fingerprint, &rec.Label, &rec.Symbols, &rec.Document, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

// ListPlacements returns journal rows in deterministic order:
// created_at ASC, then op_id ASC COLLATE BINARY (UUIDv7 IDs sort
// chronologically, so ties within one timestamp stay stable). A limit
// of 0 returns everything.
//
// Returns an empty slice (not nil) on an empty journal.
func (s *Store) ListPlacements(ctx context.Context, limit int) ([]PlacementRecord, error) {
	query := `
		SELECT op_id, symbol, break_string, overflow, overwrite, instrument_source,
		       start_line, next_line, placed, skipped, truncated, transitioned, created_at
		FROM placements
		ORDER BY created_at ASC, op_id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	records := make([]PlacementRecord, 0)
	for rows.Next() {
		var rec PlacementRecord
		if err := rows.Scan(
			&rec.OpID, &rec.Symbol, &rec.BreakString,
			&rec.Overflow, &rec.Overwrite, &rec.InstrumentSource,
			&rec.StartLine, &rec.NextLine,
			&rec.Placed, &rec.Skipped, &rec.Truncated,
			&rec.Transitioned, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}
	return records, nil
}
