package seq

// TicksPerLine is the tick resolution of one grid line.
// A delay column value addresses a tick within its line, so a full
// position is (line, delay) with delay in [0, 255].
const TicksPerLine = 256

// MaxDelay is the largest delay value that fits inside a single line.
const MaxDelay = TicksPerLine - 1

// Position addresses a single tick on the grid.
//
// INVARIANT: Delay never leaves [0, 255] on a normalized Position.
// Arithmetic that would push Delay outside that range carries into Line
// instead. Line is 1-based.
type Position struct {
	Line  int
	Delay int
}

// Ticks returns the absolute tick index of the position.
// Line 1, delay 0 is tick zero.
func (p Position) Ticks() int {
	return (p.Line-1)*TicksPerLine + p.Delay
}

// PositionFromTicks converts an absolute tick index back to a
// normalized (line, delay) pair.
func PositionFromTicks(ticks int) Position {
	line := ticks / TicksPerLine
	delay := ticks - line*TicksPerLine
	if delay < 0 {
		// Integer division truncates toward zero; renormalize for
		// negative tick values so Delay stays in range.
		line--
		delay += TicksPerLine
	}
	return Position{Line: line + 1, Delay: delay}
}

// Add returns the position advanced by the given number of ticks,
// carrying delay overflow (or borrow) into the line.
func (p Position) Add(ticks int) Position {
	return PositionFromTicks(p.Ticks() + ticks)
}

// Before reports whether p addresses an earlier tick than q.
func (p Position) Before(q Position) bool {
	return p.Ticks() < q.Ticks()
}

// FloorDiv divides a by b rounding toward negative infinity.
// The stitching carry formula requires floor semantics: a short
// terminal distance can legitimately produce a negative line gap,
// and truncation toward zero would mis-place the next set by a line.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// WrapLine maps a line onto a container of the given length using the
// loop-overflow formula ((line - length - 1) mod length) + 1.
// The mapping is the identity for lines already in [1, length], which
// makes repeated application idempotent.
func WrapLine(line, length int) int {
	m := (line - length - 1) % length
	if m < 0 {
		m += length
	}
	return m + 1
}
