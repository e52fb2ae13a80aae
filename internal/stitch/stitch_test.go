package stitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slabtone/rebeat/internal/seq"
)

// set builds a break set directly from relative entries.
func set(entries ...seq.RelativeEvent) *seq.BreakSet {
	return &seq.BreakSet{Relative: entries}
}

func TestStitch_SingleSetVerbatim(t *testing.T) {
	a := set(
		seq.RelativeEvent{Line: 1, Delay: 0, Distance: 512, Note: 48},
		seq.RelativeEvent{Line: 3, Delay: 10, Distance: 256, Note: 50},
	)
	tl := Stitch([]*seq.BreakSet{a})
	require.Len(t, tl, 2)
	assert.Equal(t, a.Relative[0], tl[0])
	assert.Equal(t, a.Relative[1], tl[1])
}

func TestStitch_CarryWithLateTerminalDelay(t *testing.T) {
	// Terminal entry: delay 250, distance 20.
	// delay_diff = 6, line_gap = floor(14/256) = 0, adjusted = 14,
	// next start = prev_line + 1.
	a := set(seq.RelativeEvent{Line: 4, Delay: 250, Distance: 20, Note: 48})
	b := set(
		seq.RelativeEvent{Line: 1, Delay: 0, Distance: 256, Note: 50},
		seq.RelativeEvent{Line: 2, Delay: 0, Distance: 256, Note: 52},
	)

	tl := Stitch([]*seq.BreakSet{a, b})
	require.Len(t, tl, 3)

	assert.Equal(t, 5, tl[1].Line, "next set starts at prev_line + 0 + 1")
	assert.Equal(t, 14, tl[1].Delay, "adjusted delay 20 - 6")
	assert.Equal(t, 6, tl[2].Line)
	assert.Equal(t, 14, tl[2].Delay)
}

func TestStitch_DelayOverflowCarriesLine(t *testing.T) {
	// adjusted_delay 200 on top of an entry delay of 100 exceeds 255
	// and must carry one line.
	a := set(seq.RelativeEvent{Line: 1, Delay: 0, Distance: 456, Note: 48})
	// delay_diff = 256, line_gap = floor(200/256) = 0, adjusted = 200.
	b := set(
		seq.RelativeEvent{Line: 1, Delay: 0, Note: 50},
		seq.RelativeEvent{Line: 2, Delay: 100, Note: 52},
	)

	tl := Stitch([]*seq.BreakSet{a, b})
	require.Len(t, tl, 3)

	assert.Equal(t, 2, tl[1].Line)
	assert.Equal(t, 200, tl[1].Delay)
	assert.Equal(t, 4, tl[2].Line, "100+200 > 255 carries into the line")
	assert.Equal(t, 44, tl[2].Delay)
}

func TestStitch_NegativeLineGapAccepted(t *testing.T) {
	// Terminal distance shorter than the remaining delay in its line:
	// line_gap goes negative and the next set starts before the
	// previous one's nominal end. Must not be clamped.
	a := set(seq.RelativeEvent{Line: 3, Delay: 10, Distance: 16, Note: 48})
	// delay_diff = 246, line_gap = floor((16-246)/256) = -1,
	// adjusted = 16 - 246 + 256 = 26, start = 3 - 1 + 1 = 3.
	b := set(seq.RelativeEvent{Line: 1, Delay: 0, Note: 50})

	tl := Stitch([]*seq.BreakSet{a, b})
	require.Len(t, tl, 2)
	assert.Equal(t, 3, tl[1].Line)
	assert.Equal(t, 26, tl[1].Delay)
}

func TestStitch_AssociativeInEffect(t *testing.T) {
	a := set(seq.RelativeEvent{Line: 1, Delay: 0, Distance: 300, Note: 48})
	b := set(
		seq.RelativeEvent{Line: 1, Delay: 0, Distance: 200, Note: 50},
		seq.RelativeEvent{Line: 2, Delay: 30, Distance: 500, Note: 52},
	)
	c := set(seq.RelativeEvent{Line: 1, Delay: 0, Distance: 256, Note: 53})

	all := Stitch([]*seq.BreakSet{a, b, c})

	partial := Stitch([]*seq.BreakSet{a, b})
	appended := Append(partial, c)

	require.Equal(t, len(all), len(appended))
	termAll := all.Terminal()
	termApp := appended.Terminal()
	assert.Equal(t, termAll.Line, termApp.Line)
	assert.Equal(t, termAll.Delay, termApp.Delay)
}

func TestStitch_TickConservationAcrossJoin(t *testing.T) {
	// The stitched start of set B must be exactly A's terminal tick
	// plus A's terminal distance.
	a := set(seq.RelativeEvent{Line: 2, Delay: 100, Distance: 700, Note: 48})
	b := set(seq.RelativeEvent{Line: 1, Delay: 0, Note: 50})

	tl := Stitch([]*seq.BreakSet{a, b})
	require.Len(t, tl, 2)

	start := seq.Position{Line: tl[0].Line, Delay: tl[0].Delay}
	next := seq.Position{Line: tl[1].Line, Delay: tl[1].Delay}
	assert.Equal(t, start.Ticks()+700, next.Ticks())
}

func TestStitch_EmptySetSkipped(t *testing.T) {
	a := set(seq.RelativeEvent{Line: 1, Delay: 0, Distance: 256, Note: 48})
	tl := Stitch([]*seq.BreakSet{a, set(), nil, a})
	assert.Len(t, tl, 2)
}

func TestParsePermutation_Valid(t *testing.T) {
	order, err := ParsePermutation("AB", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, order)

	order, err = ParsePermutation("ABA", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, order)
}

func TestParsePermutation_InvalidCharacter(t *testing.T) {
	_, err := ParsePermutation("AC", 2)
	require.Error(t, err)
	assert.True(t, IsBreakStringError(err))

	var be *BreakStringError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 'C', be.Char)
	assert.Equal(t, 1, be.Position)
	assert.Contains(t, err.Error(), "'C'")
	assert.Contains(t, err.Error(), "A-B")
}

func TestParsePermutation_LowercaseRejected(t *testing.T) {
	_, err := ParsePermutation("a", 2)
	assert.True(t, IsBreakStringError(err))
}

func TestParsePermutation_Empty(t *testing.T) {
	_, err := ParsePermutation("", 2)
	assert.True(t, IsBreakStringError(err))
}

func TestParsePermutation_NoSets(t *testing.T) {
	_, err := ParsePermutation("A", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no break sets")
}
