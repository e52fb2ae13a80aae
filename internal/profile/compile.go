package profile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/slabtone/rebeat/internal/breakset"
	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/registry"
)

// Load reads and compiles a profile from a single .cue file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling profile %s: %w", path, err)
	}
	return Compile(v)
}

// Compile extracts a Profile from a CUE value. The value must hold a
// top-level "profile" struct.
func Compile(root cue.Value) (*Profile, error) {
	v := root.LookupPath(cue.ParsePath("profile"))
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "profile",
			Message: "no top-level profile struct",
			Pos:     root.Pos(),
		}
	}
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "profile", Message: err.Error(), Pos: v.Pos()}
	}

	p := &Profile{Symbols: make(map[rune]SymbolConfig)}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, &CompileError{Field: "name", Message: "must be a string", Pos: nameVal.Pos()}
		}
		p.Name = name
	}

	if err := compileBoundaries(v, p); err != nil {
		return nil, err
	}
	if err := compileDefaults(v, p); err != nil {
		return nil, err
	}
	if err := compileSymbols(v, p); err != nil {
		return nil, err
	}
	return p, nil
}

func compileBoundaries(v cue.Value, p *Profile) error {
	boundsVal := v.LookupPath(cue.ParsePath("boundaries"))
	if !boundsVal.Exists() {
		return nil
	}

	iter, err := boundsVal.List()
	if err != nil {
		return &CompileError{Field: "boundaries", Message: "must be a list of channel values", Pos: boundsVal.Pos()}
	}
	for iter.Next() {
		ch, err := iter.Value().Int64()
		if err != nil {
			return &CompileError{Field: "boundaries", Message: "channel values must be integers", Pos: iter.Value().Pos()}
		}
		if ch < 0 || ch > 255 {
			return &CompileError{
				Field:   "boundaries",
				Message: fmt.Sprintf("channel %d outside 0-255", ch),
				Pos:     iter.Value().Pos(),
			}
		}
		p.Boundaries = append(p.Boundaries, int(ch))
	}
	if len(p.Boundaries) > breakset.MaxBoundaries {
		return &CompileError{
			Field:   "boundaries",
			Message: fmt.Sprintf("%d boundary channels exceed the maximum of %d", len(p.Boundaries), breakset.MaxBoundaries),
			Pos:     boundsVal.Pos(),
		}
	}
	return nil
}

func compileDefaults(v cue.Value, p *Profile) error {
	defVal := v.LookupPath(cue.ParsePath("defaults"))
	if !defVal.Exists() {
		return nil
	}

	if ofVal := defVal.LookupPath(cue.ParsePath("overflow")); ofVal.Exists() {
		name, err := ofVal.String()
		if err != nil {
			return &CompileError{Field: "defaults.overflow", Message: "must be a string", Pos: ofVal.Pos()}
		}
		policy, err := place.ParseOverflowPolicy(name)
		if err != nil {
			return &CompileError{Field: "defaults.overflow", Message: err.Error(), Pos: ofVal.Pos()}
		}
		p.Defaults.Overflow = policy
	}

	if owVal := defVal.LookupPath(cue.ParsePath("overwrite")); owVal.Exists() {
		name, err := owVal.String()
		if err != nil {
			return &CompileError{Field: "defaults.overwrite", Message: "must be a string", Pos: owVal.Pos()}
		}
		policy, err := place.ParseOverwritePolicy(name)
		if err != nil {
			return &CompileError{Field: "defaults.overwrite", Message: err.Error(), Pos: owVal.Pos()}
		}
		p.Defaults.Overwrite = policy
	}

	if inVal := defVal.LookupPath(cue.ParsePath("instrument")); inVal.Exists() {
		name, err := inVal.String()
		if err != nil {
			return &CompileError{Field: "defaults.instrument", Message: "must be a string", Pos: inVal.Pos()}
		}
		source, err := place.ParseInstrumentSource(name)
		if err != nil {
			return &CompileError{Field: "defaults.instrument", Message: err.Error(), Pos: inVal.Pos()}
		}
		p.Defaults.Instrument = source
	}
	return nil
}

func compileSymbols(v cue.Value, p *Profile) error {
	symsVal := v.LookupPath(cue.ParsePath("symbols"))
	if !symsVal.Exists() {
		return nil
	}

	iter, err := symsVal.Fields()
	if err != nil {
		return &CompileError{Field: "symbols", Message: "must be a struct keyed by symbol", Pos: symsVal.Pos()}
	}
	for iter.Next() {
		label := iter.Label()
		if len([]rune(label)) != 1 || !registry.ValidKey([]rune(label)[0]) {
			return &CompileError{
				Field:   "symbols." + label,
				Message: "symbol keys are single characters A-T or 0-9",
				Pos:     iter.Value().Pos(),
			}
		}
		key := []rune(label)[0]

		cfg := SymbolConfig{Instrument: -1}
		sv := iter.Value()
		if lv := sv.LookupPath(cue.ParsePath("label")); lv.Exists() {
			text, err := lv.String()
			if err != nil {
				return &CompileError{Field: "symbols." + label + ".label", Message: "must be a string", Pos: lv.Pos()}
			}
			cfg.Label = text
		}
		if iv := sv.LookupPath(cue.ParsePath("instrument")); iv.Exists() {
			n, err := iv.Int64()
			if err != nil || n < 0 || n > 255 {
				return &CompileError{
					Field:   "symbols." + label + ".instrument",
					Message: "must be an integer in 0-255",
					Pos:     iv.Pos(),
				}
			}
			cfg.Instrument = int(n)
		}
		p.Symbols[key] = cfg
	}
	return nil
}
