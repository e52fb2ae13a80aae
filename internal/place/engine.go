package place

import (
	"log/slog"

	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/stitch"
)

// Request describes one placement. Exactly one source is consulted: a
// registry symbol when Symbol is set, otherwise a break string
// permuting Sets. Zero-valued policies fall back to extend / sum /
// embedded.
type Request struct {
	Symbol      rune
	BreakString string
	Sets        []*seq.BreakSet

	Overflow   OverflowPolicy
	Overwrite  OverwritePolicy
	Instrument InstrumentSource
}

func (r Request) withDefaults() Request {
	if r.Overflow == 0 {
		r.Overflow = OverflowExtend
	}
	if r.Overwrite == 0 {
		r.Overwrite = OverwriteSum
	}
	if r.Instrument == 0 {
		r.Instrument = InstrumentEmbedded
	}
	return r
}

// Result reports what a committed placement did. Shortfalls (events
// skipped by a collision policy or dropped by truncation) are counts,
// not errors: the placement still commits.
type Result struct {
	OpID string

	Placed    int
	Skipped   int
	Truncated int

	StartLine    int
	NextLine     int
	Transitioned bool

	// Container is where the chain continues: the request's container,
	// or its successor after a next-pattern transition.
	Container Container
}

// State is a snapshot of the chaining state machine, exposed for
// inspection and tests.
type State struct {
	Active         bool
	CursorTrack    int
	CursorLine     int
	NextLine       int
	OriginalStart  int
	TerminalTiming *seq.RelativeEvent
}

// Engine maps timelines onto containers and chains consecutive
// placements, so a run of symbol presses keeps musical time across
// calls: each placement anchors exactly where the previous symbol's
// terminal event finishes sounding, using the same carry arithmetic
// the stitcher applies between break sets.
//
// The engine is single-threaded by contract, like the host it runs
// inside; it holds no locks.
type Engine struct {
	reg *registry.Registry
	ids OpIDGenerator
	log *slog.Logger

	chaining      bool
	track         int
	line          int
	lastSeenTrack int
	lastSeenLine  int
	next          int
	origin        int
	terminal      *seq.RelativeEvent
}

// NewEngine returns an engine over the given registry. A nil generator
// defaults to UUIDv7 operation IDs; a nil logger defaults to
// slog.Default.
func NewEngine(reg *registry.Registry, ids OpIDGenerator, log *slog.Logger) *Engine {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{reg: reg, ids: ids, log: log}
}

// Reset abandons the chain. The next placement anchors at the host
// cursor.
func (e *Engine) Reset() {
	e.chaining = false
	e.terminal = nil
}

// OnCursorMoved notifies the engine of a host cursor move. A move that
// matches neither the cursor recorded at the last placement nor the
// last observed position is a genuine user jump and breaks the chain.
// The double check absorbs the host echoing a cursor update the
// engine's own advancement caused.
func (e *Engine) OnCursorMoved(track, line int) {
	if e.chaining {
		recorded := track == e.track && line == e.line
		lastSeen := track == e.lastSeenTrack && line == e.lastSeenLine
		if !recorded && !lastSeen {
			e.log.Debug("cursor moved, placement chain reset",
				"track", track, "line", line)
			e.Reset()
		}
	}
	e.lastSeenTrack = track
	e.lastSeenLine = line
}

// State returns a snapshot of the chaining state.
func (e *Engine) State() State {
	return State{
		Active:         e.chaining,
		CursorTrack:    e.track,
		CursorLine:     e.line,
		NextLine:       e.next,
		OriginalStart:  e.origin,
		TerminalTiming: e.terminal,
	}
}

// placedEvent is a timeline entry resolved to an absolute container
// line. rel.Delay holds the final adjusted delay value.
type placedEvent struct {
	line int
	rel  seq.RelativeEvent
}

// Place resolves the request's timeline, anchors it (at the cursor, or
// at the chain continuation point when a chain is active), applies the
// overflow and overwrite policies, and writes the surviving events to
// the container. Errors are raised before any container mutation; a
// request that fails leaves the grid untouched.
func (e *Engine) Place(req Request, c Container) (*Result, error) {
	if c == nil {
		return nil, &Error{Code: ErrCodeNoContainer, Message: "no target container"}
	}
	req = req.withDefaults()

	timeline, symInstr, err := e.resolveTimeline(req)
	if err != nil {
		return nil, err
	}

	cursorTrack, cursorLine := c.CursorPosition()
	events, startLine, track := e.anchorTimeline(timeline, cursorTrack, cursorLine)

	last := events[len(events)-1]
	nextLine := last.line + last.rel.Distance/seq.TicksPerLine
	if last.rel.Delay+last.rel.Distance%seq.TicksPerLine >= seq.TicksPerLine {
		nextLine++
	}
	term := last.rel
	term.Line = last.line

	out := applyOverflow(req.Overflow, c, events, startLine, nextLine, &term, e.log)

	currentInstr := c.CurrentInstrument()
	resolveInstr := func(ev seq.RelativeEvent) int {
		if req.Instrument == InstrumentCurrent {
			return currentInstr
		}
		if ev.Instrument != seq.EmptyInstrument {
			return ev.Instrument
		}
		return symInstr
	}

	var placed, skipped int
	if out.transitioned {
		// The overwrite range spans the boundary: the tail of the
		// current container and the head of the successor each get the
		// portion that falls inside them.
		cur := commitPlan{
			policy:     req.Overwrite,
			track:      track,
			events:     out.current,
			anchorLine: startLine,
			nextLine:   c.NumberOfLines() + 1,
			instrument: resolveInstr,
		}
		stats := cur.commit(c, e.log)
		placed += stats.placed
		skipped += stats.skipped

		carried := commitPlan{
			policy:     req.Overwrite,
			track:      track,
			events:     out.carried,
			anchorLine: out.anchorLine,
			nextLine:   out.nextLine,
			instrument: resolveInstr,
		}
		stats = carried.commit(out.successor, e.log)
		placed += stats.placed
		skipped += stats.skipped
	} else {
		plan := commitPlan{
			policy:          req.Overwrite,
			track:           track,
			events:          out.current,
			anchorLine:      out.anchorLine,
			nextLine:        out.nextLine,
			terminalDropped: out.terminalDropped,
			allowWrap:       req.Overflow != OverflowTruncate,
			instrument:      resolveInstr,
		}
		stats := plan.commit(c, e.log)
		placed += stats.placed
		skipped += stats.skipped
	}

	target := c
	if out.transitioned {
		target = out.successor
	}

	opID := e.ids.Generate()
	e.log.Info("placement committed",
		"op_id", opID,
		"start_line", startLine,
		"next_line", out.nextLine,
		"placed", placed,
		"skipped", skipped,
		"truncated", out.truncated,
		"overflow", req.Overflow.String(),
		"overwrite", req.Overwrite.String(),
		"transitioned", out.transitioned)

	e.chaining = true
	e.track = track
	e.line = cursorLine
	e.lastSeenTrack = track
	e.lastSeenLine = out.nextLine
	e.next = out.nextLine
	e.origin = out.anchorLine
	e.terminal = out.terminal

	return &Result{
		OpID:         opID,
		Placed:       placed,
		Skipped:      skipped,
		Truncated:    out.truncated,
		StartLine:    startLine,
		NextLine:     out.nextLine,
		Transitioned: out.transitioned,
		Container:    target,
	}, nil
}

// resolveTimeline turns the request into a concrete timeline plus the
// symbol-level instrument reference (EmptyInstrument for break-string
// requests, whose entries carry their own references).
func (e *Engine) resolveTimeline(req Request) (seq.Timeline, int, error) {
	if req.Symbol != 0 {
		sym, err := e.reg.Get(req.Symbol)
		if err != nil {
			return nil, 0, err
		}
		timeline := make(seq.Timeline, len(sym.Set.Relative))
		copy(timeline, sym.Set.Relative)
		return timeline, sym.Instrument, nil
	}

	order, err := stitch.ParsePermutation(req.BreakString, len(req.Sets))
	if err != nil {
		return nil, 0, err
	}
	picked := make([]*seq.BreakSet, 0, len(order))
	for _, idx := range order {
		picked = append(picked, req.Sets[idx])
	}
	timeline := stitch.Stitch(picked)
	if len(timeline) == 0 {
		return nil, 0, &Error{Code: ErrCodeNoSections,
			Message: "break string resolves to no events"}
	}
	return timeline, seq.EmptyInstrument, nil
}

// anchorTimeline resolves timeline entries to absolute lines. Without
// an active chain the origin is the host cursor and delays are taken
// verbatim; with one, the stitch carry from the stored terminal timing
// supplies both the origin line and a sub-line delay shift, applied
// with the same overflow rule the stitcher uses.
func (e *Engine) anchorTimeline(timeline seq.Timeline, cursorTrack, cursorLine int) (events []placedEvent, startLine, track int) {
	adjustedDelay := 0
	if e.chaining && e.terminal != nil {
		adjustedDelay, startLine = stitch.Carry(e.terminal)
		track = e.track
	} else {
		startLine = cursorLine
		track = cursorTrack
	}

	events = make([]placedEvent, 0, len(timeline))
	for _, entry := range timeline {
		delay := entry.Delay + adjustedDelay
		line := entry.Line
		if delay > seq.MaxDelay {
			delay -= seq.TicksPerLine
			line++
		}
		entry.Delay = delay
		events = append(events, placedEvent{line: startLine + line - 1, rel: entry})
	}
	return events, startLine, track
}
