package registry

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/slabtone/rebeat/internal/seq"
)

// Snapshot is the persistence form of the registry: the schema the
// import/export glue reads and writes. It round-trips losslessly
// through the in-memory Symbol shape.
type Snapshot struct {
	Symbols map[string]SymbolRecord `yaml:"symbols" json:"symbols"`
}

// SymbolRecord is one persisted symbol. The capture fields are present
// only for range-captured symbols.
type SymbolRecord struct {
	Kind                string        `yaml:"kind" json:"kind"`
	InstrumentReference int           `yaml:"instrument_reference" json:"instrument_reference"`
	Timing              []TimingEntry `yaml:"timing" json:"timing"`

	SourcePatternIndex *int `yaml:"source_pattern_index,omitempty" json:"source_pattern_index,omitempty"`
	SourceTrackIndex   *int `yaml:"source_track_index,omitempty" json:"source_track_index,omitempty"`
	CaptureStartLine   *int `yaml:"capture_start_line,omitempty" json:"capture_start_line,omitempty"`
	CaptureEndLine     *int `yaml:"capture_end_line,omitempty" json:"capture_end_line,omitempty"`
}

// TimingEntry is one persisted relative event. Absent optional fields
// carry their sentinel value (-1) rather than being omitted, so the
// round trip is exact.
type TimingEntry struct {
	ChannelValue              int `yaml:"channel_value" json:"channel_value"`
	RelativeLine              int `yaml:"relative_line" json:"relative_line"`
	Delay                     int `yaml:"delay" json:"delay"`
	OriginalDistance          int `yaml:"original_distance" json:"original_distance"`
	SourceInstrumentReference int `yaml:"source_instrument_reference" json:"source_instrument_reference"`
	Note                      int `yaml:"note" json:"note"`
	Volume                    int `yaml:"volume" json:"volume"`
	Panning                   int `yaml:"panning" json:"panning"`
	EffectID                  int `yaml:"effect_id" json:"effect_id"`
	EffectValue               int `yaml:"effect_value" json:"effect_value"`
}

// Snapshot converts the live registry to its persistence form.
func (r *Registry) Snapshot() *Snapshot {
	snap := &Snapshot{Symbols: make(map[string]SymbolRecord, len(r.symbols))}
	for _, key := range r.Keys() {
		sym := r.symbols[key]
		rec := SymbolRecord{
			Kind:                sym.Kind.String(),
			InstrumentReference: sym.Instrument,
		}
		if sym.Set != nil {
			rec.Timing = make([]TimingEntry, len(sym.Set.Relative))
			for i, e := range sym.Set.Relative {
				rec.Timing[i] = TimingEntry{
					ChannelValue:              e.Channel,
					RelativeLine:              e.Line,
					Delay:                     e.Delay,
					OriginalDistance:          e.Distance,
					SourceInstrumentReference: e.Instrument,
					Note:                      e.Note,
					Volume:                    e.Volume,
					Panning:                   e.Panning,
					EffectID:                  e.EffectID,
					EffectValue:               e.EffectValue,
				}
			}
		}
		if sym.Capture != nil {
			rec.SourcePatternIndex = ptr(sym.Capture.PatternIndex)
			rec.SourceTrackIndex = ptr(sym.Capture.TrackIndex)
			rec.CaptureStartLine = ptr(sym.Capture.StartLine)
			rec.CaptureEndLine = ptr(sym.Capture.EndLine)
		}
		snap.Symbols[string(key)] = rec
	}
	return snap
}

// FromSnapshot rebuilds a registry from its persistence form. Keys and
// kinds are validated; an unknown kind or a multi-character key is a
// decode error.
func FromSnapshot(snap *Snapshot) (*Registry, error) {
	r := New()
	for keyStr, rec := range snap.Symbols {
		runes := []rune(keyStr)
		if len(runes) != 1 || !ValidKey(runes[0]) {
			return nil, &Error{Code: ErrCodeInvalidKey,
				Message: fmt.Sprintf("invalid snapshot key %q", keyStr)}
		}
		key := runes[0]

		kind, err := ParseKind(rec.Kind)
		if err != nil {
			return nil, fmt.Errorf("snapshot key %q: %w", keyStr, err)
		}

		rel := make([]seq.RelativeEvent, len(rec.Timing))
		for i, te := range rec.Timing {
			rel[i] = seq.RelativeEvent{
				Channel:     te.ChannelValue,
				Line:        te.RelativeLine,
				Delay:       te.Delay,
				Distance:    te.OriginalDistance,
				Instrument:  te.SourceInstrumentReference,
				Note:        te.Note,
				Volume:      te.Volume,
				Panning:     te.Panning,
				EffectID:    te.EffectID,
				EffectValue: te.EffectValue,
			}
		}

		sym := &Symbol{
			Kind:       kind,
			Instrument: rec.InstrumentReference,
			Set:        &seq.BreakSet{Relative: rel},
		}

		switch kind {
		case KindRangeCaptured:
			if rec.SourcePatternIndex == nil || rec.SourceTrackIndex == nil ||
				rec.CaptureStartLine == nil || rec.CaptureEndLine == nil {
				return nil, fmt.Errorf("snapshot key %q: captured symbol missing capture fields", keyStr)
			}
			sym.Capture = &Capture{
				PatternIndex: *rec.SourcePatternIndex,
				TrackIndex:   *rec.SourceTrackIndex,
				StartLine:    *rec.CaptureStartLine,
				EndLine:      *rec.CaptureEndLine,
			}
		case KindBreakpointDerived:
			// No capture provenance for boundary-derived symbols.
		}

		r.symbols[key] = sym
	}
	return r, nil
}

// EncodeYAML serializes the snapshot for file export.
func (s *Snapshot) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// DecodeYAML parses a snapshot from file content.
func DecodeYAML(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// EncodeJSON serializes the snapshot for the JSON export path.
func (s *Snapshot) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeJSON parses a snapshot from JSON content.
func DecodeJSON(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Fingerprint returns the canonical-JSON SHA-256 of the snapshot
// content. Two snapshots with the same symbols share a fingerprint
// regardless of encoding or key order.
func (s *Snapshot) Fingerprint() (string, error) {
	symbols := make(map[string]any, len(s.Symbols))
	for key, rec := range s.Symbols {
		timing := make([]any, len(rec.Timing))
		for i, te := range rec.Timing {
			timing[i] = map[string]any{
				"channel_value":               te.ChannelValue,
				"relative_line":               te.RelativeLine,
				"delay":                       te.Delay,
				"original_distance":           te.OriginalDistance,
				"source_instrument_reference": te.SourceInstrumentReference,
				"note":                        te.Note,
				"volume":                      te.Volume,
				"panning":                     te.Panning,
				"effect_id":                   te.EffectID,
				"effect_value":                te.EffectValue,
			}
		}
		entry := map[string]any{
			"kind":                 rec.Kind,
			"instrument_reference": rec.InstrumentReference,
			"timing":               timing,
		}
		if rec.SourcePatternIndex != nil {
			entry["source_pattern_index"] = *rec.SourcePatternIndex
			entry["source_track_index"] = *rec.SourceTrackIndex
			entry["capture_start_line"] = *rec.CaptureStartLine
			entry["capture_end_line"] = *rec.CaptureEndLine
		}
		symbols[key] = entry
	}
	return seq.Fingerprint(map[string]any{"symbols": symbols})
}

func ptr(n int) *int {
	return &n
}
