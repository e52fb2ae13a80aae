// Package grid provides the in-memory pattern container the placement
// engine writes into. A Pattern is a sparse (track, line, column) cell
// store with a host cursor, an active instrument, and a lazily created
// successor for cross-pattern placements.
package grid

import (
	"fmt"

	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/seq"
)

type cellKey struct {
	track  int
	line   int
	column int
}

// Pattern is one grid page. Cells are stored sparsely: an unset slot
// reads back as an empty cell.
type Pattern struct {
	index   int
	tracks  int
	lines   int
	columns int
	cells   map[cellKey]seq.Cell

	cursorTrack int
	cursorLine  int
	instrument  int

	successor *Pattern
}

// New returns an empty pattern of the given dimensions. The cursor
// starts at track 0, line 1.
func New(tracks, lines, columns int) *Pattern {
	return &Pattern{
		tracks:     tracks,
		lines:      lines,
		columns:    columns,
		cells:      make(map[cellKey]seq.Cell),
		cursorLine: 1,
		instrument: seq.EmptyInstrument,
	}
}

// Index is the pattern's position in the successor chain, starting at 0.
func (p *Pattern) Index() int { return p.index }

// Tracks returns the track count.
func (p *Pattern) Tracks() int { return p.tracks }

// Event returns the cell at (track, line, column), or an empty cell
// for vacant or out-of-range slots.
func (p *Pattern) Event(track, line, column int) seq.Cell {
	if cell, ok := p.cells[cellKey{track, line, column}]; ok {
		return cell
	}
	return seq.EmptyCell()
}

// SetEvent stores a cell. Out-of-range coordinates are ignored.
func (p *Pattern) SetEvent(track, line, column int, cell seq.Cell) {
	if !p.valid(track, line, column) {
		return
	}
	p.cells[cellKey{track, line, column}] = cell
}

// ClearEvent vacates a cell.
func (p *Pattern) ClearEvent(track, line, column int) {
	delete(p.cells, cellKey{track, line, column})
}

func (p *Pattern) valid(track, line, column int) bool {
	return track >= 0 && track < p.tracks &&
		line >= 1 && line <= p.lines &&
		column >= 0 && column < p.columns
}

// NumberOfLines returns the pattern length in lines.
func (p *Pattern) NumberOfLines() int { return p.lines }

// SetNumberOfLines resizes the pattern. Shrinking drops cells past the
// new end.
func (p *Pattern) SetNumberOfLines(n int) {
	if n < p.lines {
		for key := range p.cells {
			if key.line > n {
				delete(p.cells, key)
			}
		}
	}
	p.lines = n
}

// ColumnCount returns the per-track column count.
func (p *Pattern) ColumnCount() int { return p.columns }

// CursorPosition reports the host cursor.
func (p *Pattern) CursorPosition() (track, line int) {
	return p.cursorTrack, p.cursorLine
}

// SetCursor moves the host cursor. Callers driving a placement engine
// should also notify it via OnCursorMoved.
func (p *Pattern) SetCursor(track, line int) {
	p.cursorTrack = track
	p.cursorLine = line
}

// CurrentInstrument is the host's active instrument.
func (p *Pattern) CurrentInstrument() int { return p.instrument }

// SetCurrentInstrument sets the host's active instrument.
func (p *Pattern) SetCurrentInstrument(n int) { p.instrument = n }

// Successor returns the next pattern in the chain, or nil when none
// has been created.
func (p *Pattern) Successor() *Pattern { return p.successor }

// CreateSuccessor returns the pattern that follows this one, creating
// an empty pattern of the same dimensions on first use. The successor
// shares the host cursor and instrument state conceptually; a fresh
// one starts with the same instrument.
func (p *Pattern) CreateSuccessor() place.Container {
	if p.successor == nil {
		succ := New(p.tracks, p.lines, p.columns)
		succ.index = p.index + 1
		succ.instrument = p.instrument
		p.successor = succ
	}
	return p.successor
}

// Track extracts one track's primary-column cells as a dense row
// slice, indexed by line-1, for the timing analyzer.
func (p *Pattern) Track(track int) []seq.Cell {
	rows := make([]seq.Cell, p.lines)
	for i := range rows {
		rows[i] = p.Event(track, i+1, 0)
	}
	return rows
}

// Range extracts the primary-column cells of [startLine, endLine] on
// one track, for range capture.
func (p *Pattern) Range(track, startLine, endLine int) ([]seq.Cell, error) {
	if startLine < 1 || endLine > p.lines || startLine > endLine {
		return nil, fmt.Errorf("invalid line range %d-%d for %d-line pattern",
			startLine, endLine, p.lines)
	}
	rows := make([]seq.Cell, endLine-startLine+1)
	for i := range rows {
		rows[i] = p.Event(track, startLine+i, 0)
	}
	return rows, nil
}

// EventCount returns the number of occupied cells, across all tracks
// and columns.
func (p *Pattern) EventCount() int { return len(p.cells) }
