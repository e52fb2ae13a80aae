package store

import (
	"context"
	"fmt"

	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/registry"
)

// PlacementRecord is one journal row. Policy fields hold the wire
// names so the journal reads without this module's type definitions.
type PlacementRecord struct {
	OpID             string
	Symbol           string
	BreakString      string
	Overflow         string
	Overwrite        string
	InstrumentSource string
	StartLine        int
	NextLine         int
	Placed           int
	Skipped          int
	Truncated        int
	Transitioned     bool
	CreatedAt        string
}

// NewPlacementRecord builds a journal row from a placement request and
// its result.
func NewPlacementRecord(req place.Request, res *place.Result) PlacementRecord {
	symbol := ""
	if req.Symbol != 0 {
		symbol = string(req.Symbol)
	}
	return PlacementRecord{
		OpID:             res.OpID,
		Symbol:           symbol,
		BreakString:      req.BreakString,
		Overflow:         req.Overflow.String(),
		Overwrite:        req.Overwrite.String(),
		InstrumentSource: req.Instrument.String(),
		StartLine:        res.StartLine,
		NextLine:         res.NextLine,
		Placed:           res.Placed,
		Skipped:          res.Skipped,
		Truncated:        res.Truncated,
		Transitioned:     res.Transitioned,
	}
}

// SaveSnapshot persists the registry's current state. The snapshot
// document is YAML; its identity is the canonical-JSON fingerprint.
// Saving an unchanged registry is a no-op: ON CONFLICT(fingerprint)
// DO NOTHING makes repeated saves idempotent, and inserted reports
// whether this call stored a new row.
func (s *Store) SaveSnapshot(ctx context.Context, reg *registry.Registry, label string) (fingerprint string, inserted bool, err error) {
	snap := reg.Snapshot()

	fingerprint, err = snap.Fingerprint()
	if err != nil {
		return "", false, fmt.Errorf("save snapshot: %w", err)
	}
	doc, err := snap.EncodeYAML()
	if err != nil {
		return "", false, fmt.Errorf("save snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (fingerprint, label, symbols, document)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fingerprint, label, len(snap.Symbols), string(doc))
	if err != nil {
		return "", false, fmt.Errorf("save snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("save snapshot: %w", err)
	}
	return fingerprint, rows > 0, nil
}

// RecordPlacement appends one row to the placement journal.
// Uses ON CONFLICT(op_id) DO NOTHING for idempotency - replaying a
// result write is silently ignored.
func (s *Store) RecordPlacement(ctx context.Context, rec PlacementRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO placements
		(op_id, symbol, break_string, overflow, overwrite, instrument_source,
		 start_line, next_line, placed, skipped, truncated, transitioned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(op_id) DO NOTHING
	`,
		rec.OpID,
		rec.Symbol,
		rec.BreakString,
		rec.Overflow,
		rec.Overwrite,
		rec.InstrumentSource,
		rec.StartLine,
		rec.NextLine,
		rec.Placed,
		rec.Skipped,
		rec.Truncated,
		rec.Transitioned,
	)
	if err != nil {
		return fmt.Errorf("record placement: %w", err)
	}
	return nil
}
