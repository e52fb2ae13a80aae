// Package place maps stitched timelines onto absolute grid
// coordinates. It owns the cursor/chaining state machine and resolves
// overflow (grid too short) and collision (target cells occupied)
// against deterministic policies before committing events.
package place

import (
	"fmt"

	"github.com/slabtone/rebeat/internal/seq"
)

// Container is the target grid, an external collaborator. The engine
// consumes it through this interface; internal/grid provides the
// reference implementation.
type Container interface {
	// Event returns the cell at (track, line, column). Vacant slots
	// return a cell for which IsEmpty is true.
	Event(track, line, column int) seq.Cell
	// SetEvent stores a cell at (track, line, column), replacing any
	// previous contents.
	SetEvent(track, line, column int, cell seq.Cell)
	// ClearEvent vacates the cell at (track, line, column).
	ClearEvent(track, line, column int)

	NumberOfLines() int
	// SetNumberOfLines grows or shrinks the grid. Used by the Extend
	// overflow policy.
	SetNumberOfLines(n int)
	ColumnCount() int

	// CursorPosition reports the host cursor as (track, line).
	CursorPosition() (track, line int)
	// CurrentInstrument is the host's active instrument, used by the
	// CurrentSelected instrument-source policy.
	CurrentInstrument() int

	// CreateSuccessor returns the container that follows this one,
	// creating it when none exists. Used by the NextPattern overflow
	// policy.
	CreateSuccessor() Container
}

// primaryColumn is the note column placements target; higher columns
// are overflow slots probed only by the Sum policy.
const primaryColumn = 0

// OverflowPolicy decides what happens to events whose computed line
// exceeds the container length. Applied before overwrite resolution.
type OverflowPolicy int

const (
	// OverflowExtend grows the container to fit the terminal event's
	// full duration.
	OverflowExtend OverflowPolicy = iota + 1
	// OverflowNextPattern carries overhanging events into the
	// successor container, remapping their lines past the boundary.
	OverflowNextPattern
	// OverflowTruncate drops overhanging events and reports the count.
	OverflowTruncate
	// OverflowLoop wraps overhanging lines back to the container head.
	OverflowLoop
)

var overflowNames = map[OverflowPolicy]string{
	OverflowExtend:      "extend",
	OverflowNextPattern: "next-pattern",
	OverflowTruncate:    "truncate",
	OverflowLoop:        "loop",
}

func (p OverflowPolicy) String() string {
	if name, ok := overflowNames[p]; ok {
		return name
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// ParseOverflowPolicy converts a policy name from flags, profiles, or
// scenario files.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	for p, name := range overflowNames {
		if name == s {
			return p, nil
		}
	}
	return 0, &Error{Code: ErrCodeInvalidPolicy,
		Message: fmt.Sprintf("unknown overflow policy %q (extend, next-pattern, truncate, loop)", s)}
}

// OverwritePolicy decides how newly placed events interact with
// pre-existing container content. Applied after overflow, on final
// line positions.
type OverwritePolicy int

const (
	// OverwriteSum keeps existing data, probing secondary columns for
	// a free slot; an event with no free column is skipped.
	OverwriteSum OverwritePolicy = iota + 1
	// OverwriteReplace clears every column over the symbol's whole
	// line range before writing.
	OverwriteReplace
	// OverwriteSubstitute clears the primary column only on the lines
	// a new event lands on; secondary columns survive.
	OverwriteSubstitute
	// OverwriteRetain drops new events whose target line is occupied.
	OverwriteRetain
	// OverwriteExclude clears conflicting lines on both sides: where
	// old and new collide, neither survives.
	OverwriteExclude
	// OverwriteIntersect keeps only the collisions: existing events on
	// non-conflicting lines in range are cleared and only new events
	// landing on conflicts survive. With no conflicts anywhere in
	// range it deliberately falls back to Sum semantics; Exclude has
	// no such fallback and the asymmetry is intentional.
	OverwriteIntersect
)

var overwriteNames = map[OverwritePolicy]string{
	OverwriteSum:        "sum",
	OverwriteReplace:    "replace",
	OverwriteSubstitute: "substitute",
	OverwriteRetain:     "retain",
	OverwriteExclude:    "exclude",
	OverwriteIntersect:  "intersect",
}

func (p OverwritePolicy) String() string {
	if name, ok := overwriteNames[p]; ok {
		return name
	}
	return fmt.Sprintf("OverwritePolicy(%d)", int(p))
}

// ParseOverwritePolicy converts a policy name from flags, profiles, or
// scenario files.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	for p, name := range overwriteNames {
		if name == s {
			return p, nil
		}
	}
	return 0, &Error{Code: ErrCodeInvalidPolicy,
		Message: fmt.Sprintf("unknown overwrite policy %q (sum, replace, substitute, retain, exclude, intersect)", s)}
}

// InstrumentSource decides which instrument reference written events
// carry.
type InstrumentSource int

const (
	// InstrumentEmbedded uses the reference captured in the symbol's
	// timing.
	InstrumentEmbedded InstrumentSource = iota + 1
	// InstrumentCurrent uses the container's active instrument for
	// every event.
	InstrumentCurrent
)

var instrumentNames = map[InstrumentSource]string{
	InstrumentEmbedded: "embedded",
	InstrumentCurrent:  "current",
}

func (p InstrumentSource) String() string {
	if name, ok := instrumentNames[p]; ok {
		return name
	}
	return fmt.Sprintf("InstrumentSource(%d)", int(p))
}

// ParseInstrumentSource converts a policy name from flags, profiles,
// or scenario files.
func ParseInstrumentSource(s string) (InstrumentSource, error) {
	for p, name := range instrumentNames {
		if name == s {
			return p, nil
		}
	}
	return 0, &Error{Code: ErrCodeInvalidPolicy,
		Message: fmt.Sprintf("unknown instrument source %q (embedded, current)", s)}
}
