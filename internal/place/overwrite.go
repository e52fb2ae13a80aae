package place

import (
	"log/slog"

	"github.com/slabtone/rebeat/internal/seq"
)

// replaceFallbackPad is the extra line the Replace/Intersect range
// keeps past the furthest surviving event when truncation dropped the
// terminal and the true next line is unknown.
const replaceFallbackPad = 1

// commitPlan carries everything the overwrite stage needs to resolve
// collisions and write one event batch into one container.
type commitPlan struct {
	policy OverwritePolicy
	track  int
	events []placedEvent

	// anchorLine..nextLine-1 is the symbol's nominal line range, used
	// by Replace and Intersect.
	anchorLine int
	nextLine   int

	// terminalDropped marks that truncation removed the terminal
	// event, so nextLine no longer bounds the range.
	terminalDropped bool
	// allowWrap permits the range to wrap past the container end into
	// a head segment (loop and extend-style overflows).
	allowWrap bool

	instrument func(seq.RelativeEvent) int
}

type commitStats struct {
	placed  int
	skipped int
}

// commit applies the plan's overwrite policy and writes the surviving
// events. Events outside the container are skipped, never written.
func (p commitPlan) commit(c Container, log *slog.Logger) commitStats {
	switch p.policy {
	case OverwriteSum:
		return p.commitSum(c, log)
	case OverwriteReplace:
		return p.commitReplace(c)
	case OverwriteSubstitute:
		return p.commitSubstitute(c)
	case OverwriteRetain:
		return p.commitRetain(c, log)
	case OverwriteExclude:
		return p.commitExclude(c)
	case OverwriteIntersect:
		return p.commitIntersect(c, log)
	}
	return commitStats{}
}

func inBounds(c Container, line int) bool {
	return line >= 1 && line <= c.NumberOfLines()
}

func clearLine(c Container, track, line int) {
	for col := 0; col < c.ColumnCount(); col++ {
		c.ClearEvent(track, line, col)
	}
}

func (p commitPlan) write(c Container, ev placedEvent, column int) {
	c.SetEvent(p.track, ev.line, column, ev.rel.Cell(p.instrument(ev.rel)))
}

// furthestLine is the highest line any plan event lands on.
func (p commitPlan) furthestLine() int {
	furthest := 0
	for _, ev := range p.events {
		if ev.line > furthest {
			furthest = ev.line
		}
	}
	return furthest
}

// replaceSegments computes the line range Replace and Intersect
// operate on: [anchor, nextLine-1], or a conservative fallback bounded
// by the furthest surviving event when truncation dropped the
// terminal. A range running past the container end wraps into a head
// segment capped before the anchor line, so a wrapped clear never eats
// the symbol's own starting line.
func (p commitPlan) replaceSegments(length int) [][2]int {
	start := p.anchorLine
	if start < 1 {
		start = 1
	}
	end := p.nextLine - 1
	if p.terminalDropped {
		end = p.furthestLine() + replaceFallbackPad
	}
	if end > length && !p.allowWrap {
		end = length
	}

	if end > length {
		segs := [][2]int{{start, length}}
		wrapEnd := end - length
		if wrapEnd > start-1 {
			wrapEnd = start - 1
		}
		if wrapEnd >= 1 {
			segs = append(segs, [2]int{1, wrapEnd})
		}
		return segs
	}
	if end < start {
		if !p.allowWrap {
			return nil
		}
		// Loop overflow wrapped nextLine behind the anchor: the range
		// runs to the container end and resumes at the head.
		segs := [][2]int{{start, length}}
		if end >= 1 {
			segs = append(segs, [2]int{1, end})
		}
		return segs
	}
	return [][2]int{{start, end}}
}

func inSegments(segs [][2]int, line int) bool {
	for _, seg := range segs {
		if line >= seg[0] && line <= seg[1] {
			return true
		}
	}
	return false
}

// commitSum keeps existing data and probes secondary columns for a
// free slot; an event with no free column anywhere on its line is
// skipped and counted.
func (p commitPlan) commitSum(c Container, log *slog.Logger) commitStats {
	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) {
			stats.skipped++
			continue
		}
		column := -1
		for col := 0; col < c.ColumnCount(); col++ {
			if c.Event(p.track, ev.line, col).IsEmpty() {
				column = col
				break
			}
		}
		if column < 0 {
			log.Warn("no free column, event skipped",
				"track", p.track, "line", ev.line)
			stats.skipped++
			continue
		}
		p.write(c, ev, column)
		stats.placed++
	}
	return stats
}

// commitReplace clears every column over the symbol's whole line range
// and writes all events to the primary column.
func (p commitPlan) commitReplace(c Container) commitStats {
	for _, seg := range p.replaceSegments(c.NumberOfLines()) {
		for line := seg[0]; line <= seg[1]; line++ {
			clearLine(c, p.track, line)
		}
	}

	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) {
			stats.skipped++
			continue
		}
		p.write(c, ev, primaryColumn)
		stats.placed++
	}
	return stats
}

// commitSubstitute clears the primary column only on the lines new
// events land on, then writes to the primary column. Lines in between
// and secondary columns keep their data.
func (p commitPlan) commitSubstitute(c Container) commitStats {
	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) {
			stats.skipped++
			continue
		}
		c.ClearEvent(p.track, ev.line, primaryColumn)
	}
	for _, ev := range p.events {
		if !inBounds(c, ev.line) {
			continue
		}
		p.write(c, ev, primaryColumn)
		stats.placed++
	}
	return stats
}

// commitRetain drops new events whose primary column is occupied;
// existing data always wins.
func (p commitPlan) commitRetain(c Container, log *slog.Logger) commitStats {
	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) {
			stats.skipped++
			continue
		}
		if !c.Event(p.track, ev.line, primaryColumn).IsEmpty() {
			log.Debug("line occupied, event retained existing data",
				"track", p.track, "line", ev.line)
			stats.skipped++
			continue
		}
		p.write(c, ev, primaryColumn)
		stats.placed++
	}
	return stats
}

// commitExclude clears conflicting lines on both sides: where old and
// new collide, neither survives, so conflict lines end up empty.
func (p commitPlan) commitExclude(c Container) commitStats {
	conflicts := make(map[int]bool)
	for _, ev := range p.events {
		if inBounds(c, ev.line) && !c.Event(p.track, ev.line, primaryColumn).IsEmpty() {
			conflicts[ev.line] = true
		}
	}
	for line := range conflicts {
		clearLine(c, p.track, line)
	}

	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) || conflicts[ev.line] {
			stats.skipped++
			continue
		}
		p.write(c, ev, primaryColumn)
		stats.placed++
	}
	return stats
}

// commitIntersect keeps only the collisions inside the symbol's line
// range: existing events on non-conflicting lines are cleared and only
// new events landing on conflicts are written (beside the data they
// collided with). With zero conflicts anywhere in range the policy
// falls back to Sum semantics; Exclude has no mirror-image fallback
// and that asymmetry is deliberate.
func (p commitPlan) commitIntersect(c Container, log *slog.Logger) commitStats {
	segs := p.replaceSegments(c.NumberOfLines())

	conflicts := make(map[int]bool)
	for _, ev := range p.events {
		if inBounds(c, ev.line) && !c.Event(p.track, ev.line, primaryColumn).IsEmpty() {
			conflicts[ev.line] = true
		}
	}
	if len(conflicts) == 0 {
		log.Debug("no conflicts in range, intersect falls back to sum")
		return p.commitSum(c, log)
	}

	for _, seg := range segs {
		for line := seg[0]; line <= seg[1]; line++ {
			if !conflicts[line] {
				clearLine(c, p.track, line)
			}
		}
	}

	var stats commitStats
	for _, ev := range p.events {
		if !inBounds(c, ev.line) || !conflicts[ev.line] {
			stats.skipped++
			continue
		}
		column := -1
		for col := 0; col < c.ColumnCount(); col++ {
			if c.Event(p.track, ev.line, col).IsEmpty() {
				column = col
				break
			}
		}
		if column < 0 {
			log.Warn("no free column, event skipped",
				"track", p.track, "line", ev.line)
			stats.skipped++
			continue
		}
		p.write(c, ev, column)
		stats.placed++
	}
	return stats
}
