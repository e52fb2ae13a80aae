// Package stitch concatenates break-set timelines into one continuous
// relative timeline, carrying the fractional-tick offset between sets,
// and parses the break-string mini-language that names the stitching
// order.
package stitch

import (
	"github.com/slabtone/rebeat/internal/seq"
)

// Stitch concatenates the referenced break sets, in order, into a
// single timeline. The first set's relative timing is copied verbatim;
// each subsequent set is shifted by a carry computed from the previous
// timeline's terminal entry, so that it begins exactly where the
// previous set's terminal event finishes sounding:
//
//	delay_diff      = 256 - prev_delay
//	line_gap        = floor((prev_distance - delay_diff) / 256)
//	adjusted_delay  = prev_distance - delay_diff - line_gap*256
//	next_start_line = prev_line + line_gap + 1
//
// A negative line_gap is accepted as-is: a set whose predecessor has a
// short terminal distance may logically start before the predecessor's
// nominal end line. Clamping here would break tick conservation.
//
// Stitching is associative in effect: stitching [a, b, c] produces the
// same terminal tick position as stitching [a, b] and then appending c
// via the same carry.
func Stitch(sets []*seq.BreakSet) seq.Timeline {
	var timeline seq.Timeline
	for _, set := range sets {
		timeline = Append(timeline, set)
	}
	return timeline
}

// Append extends a timeline with one break set, applying the carry
// from the timeline's terminal entry. An empty timeline receives the
// set's relative timing verbatim.
func Append(timeline seq.Timeline, set *seq.BreakSet) seq.Timeline {
	if set == nil || len(set.Relative) == 0 {
		return timeline
	}

	prev := timeline.Terminal()
	if prev == nil {
		out := make(seq.Timeline, len(set.Relative))
		copy(out, set.Relative)
		return out
	}

	adjustedDelay, startLine := Carry(prev)
	for _, entry := range set.Relative {
		delay := entry.Delay + adjustedDelay
		line := entry.Line
		if delay > seq.MaxDelay {
			delay -= seq.TicksPerLine
			line++
		}
		entry.Delay = delay
		entry.Line = line + startLine - 1
		timeline = append(timeline, entry)
	}
	return timeline
}

// Carry computes the continuation point after a terminal entry: the
// sub-line delay offset for the next set and the line its origin maps
// to. Shared with the placement engine, which applies the same carry
// in absolute coordinates when chaining consecutive placements.
func Carry(terminal *seq.RelativeEvent) (adjustedDelay, nextStartLine int) {
	delayDiff := seq.TicksPerLine - terminal.Delay
	lineGap := seq.FloorDiv(terminal.Distance-delayDiff, seq.TicksPerLine)
	adjustedDelay = terminal.Distance - delayDiff - lineGap*seq.TicksPerLine
	nextStartLine = terminal.Line + lineGap + 1
	return adjustedDelay, nextStartLine
}
