// Package timing computes tick-accurate event distances for a source
// track. The analyzer is the first stage of the pipeline: it turns raw
// grid rows into an AnalyzedSequence whose events carry the channel
// index used for boundary matching and the tick distance to the next
// event (or to the end of the sequence).
package timing

import (
	"log/slog"

	"github.com/slabtone/rebeat/internal/seq"
)

// sliceNoteOffset is subtracted from the note value on the recovery
// path to derive a slice index when no row carries explicit channel
// data. Slice mappings conventionally start one octave below middle C.
const sliceNoteOffset = 36

// sentinelInstrument is the host's "no instrument" wire value, kept
// distinct from seq.EmptyInstrument which marks an absent cell field.
const sentinelInstrument = 255

// Analyze scans the source rows (row k holds line k+1) and produces
// the analyzed sequence. A sequence with no events yields an empty
// result, never an error.
//
// Channel recovery: when every present event has an empty or sentinel
// instrument value, the channel index is derived from the note value
// instead (note minus sliceNoteOffset, clamped to [0, 255]). The scan
// over all events happens before any channel is committed, so a single
// explicit instrument anywhere disables recovery for the whole
// sequence.
func Analyze(rows []seq.Cell) seq.AnalyzedSequence {
	length := len(rows)
	analyzed := seq.AnalyzedSequence{Length: length}

	for i, cell := range rows {
		if cell.IsEmpty() {
			continue
		}
		analyzed.Events = append(analyzed.Events, seq.Event{
			Line:        i + 1,
			Delay:       cell.Delay,
			Note:        cell.Note,
			Instrument:  cell.Instrument,
			Volume:      cell.Volume,
			Panning:     cell.Panning,
			EffectID:    cell.EffectID,
			EffectValue: cell.EffectValue,
			Channel:     cell.Instrument,
		})
	}

	if analyzed.Empty() {
		return analyzed
	}

	if needsChannelRecovery(analyzed.Events) {
		slog.Debug("no explicit channel data, recovering slice indices",
			"events", len(analyzed.Events),
			"note_offset", sliceNoteOffset,
		)
		for i := range analyzed.Events {
			analyzed.Events[i].Channel = recoverChannel(analyzed.Events[i].Note)
		}
	}

	computeDistances(&analyzed)
	analyzed.Events[len(analyzed.Events)-1].Terminal = true

	return analyzed
}

// needsChannelRecovery reports whether every event lacks an explicit
// instrument/channel value.
func needsChannelRecovery(events []seq.Event) bool {
	for _, ev := range events {
		if ev.Instrument != seq.EmptyInstrument && ev.Instrument != sentinelInstrument {
			return false
		}
	}
	return true
}

// recoverChannel derives a slice index from a note value, clamped to
// the valid channel range.
func recoverChannel(note int) int {
	ch := note - sliceNoteOffset
	if ch < 0 {
		ch = 0
	}
	if ch > 255 {
		ch = 255
	}
	return ch
}

// computeDistances fills in Distance for every event.
//
// For event i with a following event j:
//
//	distance = (j.line - i.line)*256 - i.delay + j.delay
//
// The last event's distance runs to one tick past the sequence end:
//
//	distance = (length + 1 - i.line)*256 - i.delay
//
// Summing distances over the whole sequence therefore conserves ticks:
// the total always equals the span from the first event to one tick
// past line `length`.
func computeDistances(a *seq.AnalyzedSequence) {
	events := a.Events
	for i := range events {
		if i+1 < len(events) {
			next := events[i+1]
			events[i].Distance = (next.Line-events[i].Line)*seq.TicksPerLine -
				events[i].Delay + next.Delay
		} else {
			events[i].Distance = (a.Length+1-events[i].Line)*seq.TicksPerLine -
				events[i].Delay
		}
	}
}
