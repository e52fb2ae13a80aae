package grid

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/slabtone/rebeat/internal/seq"
)

// Fixture is the YAML shape of a pattern, used by scenario files and
// the command-line tools. Optional cell fields are pointers so an
// omitted field decodes to its sentinel rather than to zero, which is
// a real note and volume value.
type Fixture struct {
	Tracks     int           `yaml:"tracks"`
	Lines      int           `yaml:"lines"`
	Columns    int           `yaml:"columns"`
	Cursor     FixtureCursor `yaml:"cursor"`
	Instrument *int          `yaml:"instrument,omitempty"`
	Cells      []FixtureCell `yaml:"cells"`
}

type FixtureCursor struct {
	Track int `yaml:"track"`
	Line  int `yaml:"line"`
}

type FixtureCell struct {
	Track  int `yaml:"track"`
	Line   int `yaml:"line"`
	Column int `yaml:"column"`

	Note        *int `yaml:"note,omitempty"`
	Instrument  *int `yaml:"instrument,omitempty"`
	Delay       int  `yaml:"delay,omitempty"`
	Volume      *int `yaml:"volume,omitempty"`
	Panning     *int `yaml:"panning,omitempty"`
	EffectID    *int `yaml:"effect_id,omitempty"`
	EffectValue *int `yaml:"effect_value,omitempty"`
}

func orSentinel(v *int, sentinel int) int {
	if v == nil {
		return sentinel
	}
	return *v
}

// Build materializes the fixture into a pattern. Unset dimensions get
// tracker-typical defaults (8 tracks, 64 lines, 3 columns).
func (f Fixture) Build() (*Pattern, error) {
	tracks, lines, columns := f.Tracks, f.Lines, f.Columns
	if tracks == 0 {
		tracks = 8
	}
	if lines == 0 {
		lines = 64
	}
	if columns == 0 {
		columns = 3
	}

	p := New(tracks, lines, columns)
	if f.Cursor.Line > 0 {
		p.SetCursor(f.Cursor.Track, f.Cursor.Line)
	}
	if f.Instrument != nil {
		p.SetCurrentInstrument(*f.Instrument)
	}

	for i, fc := range f.Cells {
		if !p.valid(fc.Track, fc.Line, fc.Column) {
			return nil, fmt.Errorf("cell %d at (%d, %d, %d) outside %dx%dx%d pattern",
				i, fc.Track, fc.Line, fc.Column, tracks, lines, columns)
		}
		if fc.Delay < 0 || fc.Delay > seq.MaxDelay {
			return nil, fmt.Errorf("cell %d: delay %d outside 0-%d",
				i, fc.Delay, seq.MaxDelay)
		}
		p.SetEvent(fc.Track, fc.Line, fc.Column, seq.Cell{
			Note:        orSentinel(fc.Note, seq.EmptyNote),
			Instrument:  orSentinel(fc.Instrument, seq.EmptyInstrument),
			Delay:       fc.Delay,
			Volume:      orSentinel(fc.Volume, seq.EmptyVolume),
			Panning:     orSentinel(fc.Panning, seq.EmptyPanning),
			EffectID:    orSentinel(fc.EffectID, seq.EmptyEffect),
			EffectValue: orSentinel(fc.EffectValue, seq.EmptyEffect),
		})
	}
	return p, nil
}

// LoadFixture decodes a fixture document and builds the pattern.
func LoadFixture(data []byte) (*Pattern, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding pattern fixture: %w", err)
	}
	return f.Build()
}

// Dump converts the pattern back to fixture form with cells in
// deterministic (track, line, column) order, for assertion output and
// golden files.
func (p *Pattern) Dump() Fixture {
	f := Fixture{
		Tracks:  p.tracks,
		Lines:   p.lines,
		Columns: p.columns,
		Cursor:  FixtureCursor{Track: p.cursorTrack, Line: p.cursorLine},
	}
	if p.instrument != seq.EmptyInstrument {
		instr := p.instrument
		f.Instrument = &instr
	}

	keys := make([]cellKey, 0, len(p.cells))
	for key := range p.cells {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b cellKey) int {
		if a.track != b.track {
			return a.track - b.track
		}
		if a.line != b.line {
			return a.line - b.line
		}
		return a.column - b.column
	})

	for _, key := range keys {
		cell := p.cells[key]
		fc := FixtureCell{Track: key.track, Line: key.line, Column: key.column, Delay: cell.Delay}
		if cell.Note != seq.EmptyNote {
			v := cell.Note
			fc.Note = &v
		}
		if cell.Instrument != seq.EmptyInstrument {
			v := cell.Instrument
			fc.Instrument = &v
		}
		if cell.Volume != seq.EmptyVolume {
			v := cell.Volume
			fc.Volume = &v
		}
		if cell.Panning != seq.EmptyPanning {
			v := cell.Panning
			fc.Panning = &v
		}
		if cell.EffectID != seq.EmptyEffect {
			v := cell.EffectID
			fc.EffectID = &v
		}
		if cell.EffectValue != seq.EmptyEffect {
			v := cell.EffectValue
			fc.EffectValue = &v
		}
		f.Cells = append(f.Cells, fc)
	}
	return f
}

// EncodeYAML serializes the fixture.
func (f Fixture) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(f)
}
