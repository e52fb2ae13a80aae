package seq

// Sentinel values for absent cell fields. The grid stores "no value"
// explicitly rather than zero, since 0 is a meaningful note, volume,
// and effect value.
const (
	EmptyNote       = -1
	EmptyInstrument = -1
	EmptyVolume     = -1
	EmptyPanning    = -1
	EmptyEffect     = -1
	EmptyChannel    = -1
)

// Cell is one raw grid cell: the unanalyzed contents of a
// (track, line, column) slot in a container. A Cell with an empty
// note and instrument is considered vacant.
type Cell struct {
	Note        int
	Instrument  int
	Delay       int
	Volume      int
	Panning     int
	EffectID    int
	EffectValue int
}

// EmptyCell returns a vacant cell with every field at its sentinel.
func EmptyCell() Cell {
	return Cell{
		Note:        EmptyNote,
		Instrument:  EmptyInstrument,
		Volume:      EmptyVolume,
		Panning:     EmptyPanning,
		EffectID:    EmptyEffect,
		EffectValue: EmptyEffect,
	}
}

// IsEmpty reports whether the cell holds no event data.
func (c Cell) IsEmpty() bool {
	return c.Note == EmptyNote && c.Instrument == EmptyInstrument
}

// Event is one analyzed source event. It augments the raw cell data
// with its absolute position, the channel index used for boundary
// matching, and the derived tick distance to the following event.
//
// Events are immutable once produced by the analyzer: every later
// stage (break-set building, stitching, placement) reads them and
// builds its own representation.
type Event struct {
	Line        int
	Delay       int
	Note        int
	Instrument  int
	Volume      int
	Panning     int
	EffectID    int
	EffectValue int

	// Channel is the boundary-matching index: the explicit
	// instrument/channel value when present, or the recovered slice
	// index when the whole sequence lacks channel data.
	Channel int

	// Distance is the tick distance to the next event, or to one tick
	// past the end of the sequence for the terminal event.
	Distance int

	// Terminal marks the last event of the sequence.
	Terminal bool
}

// AnalyzedSequence is the output of the timing analyzer: the source
// events in line order plus the scanned sequence length.
type AnalyzedSequence struct {
	Length int
	Events []Event
}

// Empty reports whether the analyzer found no events at all.
func (a AnalyzedSequence) Empty() bool {
	return len(a.Events) == 0
}

// RelativeEvent is a timeline entry: an event expressed relative to
// the origin of its break set (or of a stitched timeline). Line is
// 1-based; the first entry of any break set is always (line 1, delay 0).
type RelativeEvent struct {
	Channel     int
	Line        int
	Delay       int
	Distance    int
	Note        int
	Instrument  int
	Volume      int
	Panning     int
	EffectID    int
	EffectValue int
}

// Cell converts the timeline entry back to raw cell contents at its
// final delay value. The caller decides the instrument reference.
func (e RelativeEvent) Cell(instrument int) Cell {
	return Cell{
		Note:        e.Note,
		Instrument:  instrument,
		Delay:       e.Delay,
		Volume:      e.Volume,
		Panning:     e.Panning,
		EffectID:    e.EffectID,
		EffectValue: e.EffectValue,
	}
}

// BreakSet is a contiguous run of events between two boundary markers,
// carrying both the original absolute events and the self-relative
// timing representation. Read-only after construction.
type BreakSet struct {
	StartLine int
	EndLine   int
	Events    []Event
	Relative  []RelativeEvent
}

// Timeline is an ordered list of relative events produced by stitching
// one or more break sets. It exists only for the duration of a
// placement call.
type Timeline []RelativeEvent

// Terminal returns the last entry of the timeline, or nil if empty.
func (t Timeline) Terminal() *RelativeEvent {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}
