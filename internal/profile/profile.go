// Package profile loads placement profiles from CUE files. A profile
// names the boundary channels used to cut break sets, the default
// placement policies, and per-symbol presets, so a kit's configuration
// lives in one declarative file instead of a flag soup.
package profile

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/slabtone/rebeat/internal/breakset"
	"github.com/slabtone/rebeat/internal/place"
)

// Profile is a compiled placement profile.
type Profile struct {
	Name       string
	Boundaries []int
	Defaults   Defaults
	Symbols    map[rune]SymbolConfig
}

// Defaults are the placement policies applied when a request leaves
// them unset.
type Defaults struct {
	Overflow   place.OverflowPolicy
	Overwrite  place.OverwritePolicy
	Instrument place.InstrumentSource
}

// SymbolConfig is a per-symbol preset: a human label and the
// instrument reference assignments under this key should carry.
type SymbolConfig struct {
	Label      string
	Instrument int
}

// BoundarySet converts the profile's boundary channels to the set
// shape the break-set builder consumes.
func (p *Profile) BoundarySet() breakset.BoundarySet {
	if len(p.Boundaries) == 0 {
		return nil
	}
	set := make(breakset.BoundarySet, len(p.Boundaries))
	for _, ch := range p.Boundaries {
		set[ch] = true
	}
	return set
}

// CompileError reports an invalid profile field, with the CUE source
// position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err is (or wraps) a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}
