package place

import (
	"log/slog"

	"github.com/slabtone/rebeat/internal/seq"
)

// overflowOutcome is the placement plan after the overflow policy has
// resolved events that fall past the container end.
type overflowOutcome struct {
	// current holds the events committed to the request's container.
	current []placedEvent
	// carried holds events remapped into the successor after a
	// next-pattern transition.
	carried   []placedEvent
	successor Container

	anchorLine      int
	nextLine        int
	terminal        *seq.RelativeEvent
	truncated       int
	transitioned    bool
	terminalDropped bool
}

// applyOverflow resolves out-of-range lines before anything is
// written. Extend is the only policy that mutates the container here
// (growing it); the others reshape the event list and the chain
// bookkeeping (anchor, next line, terminal timing) so that the
// overwrite stage and subsequent chained placements see consistent
// coordinates.
func applyOverflow(policy OverflowPolicy, c Container, events []placedEvent, anchorLine, nextLine int, terminal *seq.RelativeEvent, log *slog.Logger) overflowOutcome {
	out := overflowOutcome{
		current:    events,
		anchorLine: anchorLine,
		nextLine:   nextLine,
		terminal:   terminal,
	}
	length := c.NumberOfLines()

	switch policy {
	case OverflowExtend:
		// Grow to the last occupied tick of the terminal event's
		// duration, not just its start line.
		lastTick := seq.Position{Line: terminal.Line, Delay: terminal.Delay}.Ticks() +
			terminal.Distance - 1
		needed := seq.PositionFromTicks(lastTick).Line
		for _, ev := range events {
			if ev.line > needed {
				needed = ev.line
			}
		}
		if needed > length {
			log.Debug("extending container", "from", length, "to", needed)
			c.SetNumberOfLines(needed)
		}

	case OverflowNextPattern:
		overhang := false
		for _, ev := range events {
			if ev.line > length {
				overhang = true
				break
			}
		}
		if !overhang {
			break
		}
		succ := c.CreateSuccessor()
		current := make([]placedEvent, 0, len(events))
		carried := make([]placedEvent, 0, len(events))
		for _, ev := range events {
			if ev.line > length {
				ev.line -= length
				carried = append(carried, ev)
			} else {
				current = append(current, ev)
			}
		}
		out.current = current
		out.carried = carried
		out.successor = succ
		out.transitioned = true
		// The chain bookkeeping moves into successor coordinates with
		// the same shift the overhanging events got.
		out.anchorLine = anchorLine - length
		out.nextLine = nextLine - length
		term := *terminal
		term.Line -= length
		out.terminal = &term
		log.Debug("placement transitioned to successor",
			"carried", len(carried), "next_line", out.nextLine)

	case OverflowTruncate:
		kept := make([]placedEvent, 0, len(events))
		for _, ev := range events {
			if ev.line <= length {
				kept = append(kept, ev)
			}
		}
		out.truncated = len(events) - len(kept)
		if out.truncated > 0 {
			out.current = kept
			out.terminalDropped = events[len(events)-1].line > length
			log.Warn("events truncated at container end",
				"truncated", out.truncated, "length", length)
		}

	case OverflowLoop:
		wrapped := make([]placedEvent, len(events))
		for i, ev := range events {
			ev.line = seq.WrapLine(ev.line, length)
			wrapped[i] = ev
		}
		out.current = wrapped
		out.anchorLine = seq.WrapLine(anchorLine, length)
		out.nextLine = seq.WrapLine(nextLine, length)
		term := *terminal
		term.Line = seq.WrapLine(term.Line, length)
		out.terminal = &term
	}

	return out
}
