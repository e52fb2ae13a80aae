// Package registry holds the symbol store: a mapping from
// single-character symbol names to break-set-derived patterns or
// directly captured event ranges. The registry is an explicitly owned
// object passed by reference to the stitcher and placement engine,
// never ambient global state.
package registry

import (
	"fmt"

	"github.com/slabtone/rebeat/internal/seq"
)

// Kind discriminates the two symbol variants. Every switch on Kind is
// exhaustive; an unknown kind is a decode error, not a silent default.
type Kind int

const (
	// KindBreakpointDerived marks a symbol built from a break set cut
	// at marked boundaries.
	KindBreakpointDerived Kind = iota + 1
	// KindRangeCaptured marks a symbol captured directly from a
	// selected line range of a source pattern.
	KindRangeCaptured
)

// Wire names for Kind used by the persistence schema.
const (
	kindNameBreakpoint = "breakpoint"
	kindNameCaptured   = "captured"
)

func (k Kind) String() string {
	switch k {
	case KindBreakpointDerived:
		return kindNameBreakpoint
	case KindRangeCaptured:
		return kindNameCaptured
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a wire name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case kindNameBreakpoint:
		return KindBreakpointDerived, nil
	case kindNameCaptured:
		return KindRangeCaptured, nil
	default:
		return 0, fmt.Errorf("unknown symbol kind %q", s)
	}
}

// Capture records where a range-captured symbol came from.
type Capture struct {
	PatternIndex int
	TrackIndex   int
	StartLine    int
	EndLine      int
}

// Symbol is one registry entry. Set holds the pattern's timing for
// both kinds; Capture is present only for KindRangeCaptured.
type Symbol struct {
	Kind       Kind
	Instrument int // source instrument reference
	Set        *seq.BreakSet
	Capture    *Capture
	Metadata   map[string]string
}

// Empty reports whether the symbol carries no timing entries. Empty
// entries are rejected at placement time as a resource failure.
func (s *Symbol) Empty() bool {
	return s == nil || s.Set == nil || len(s.Set.Relative) == 0
}
