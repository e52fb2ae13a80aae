package breakset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/timing"
)

func analyzed(length int, cells map[int]seq.Cell) seq.AnalyzedSequence {
	rows := make([]seq.Cell, length)
	for i := range rows {
		rows[i] = seq.EmptyCell()
	}
	for line, c := range cells {
		rows[line-1] = c
	}
	return timing.Analyze(rows)
}

func note(n, instr, delay int) seq.Cell {
	c := seq.EmptyCell()
	c.Note = n
	c.Instrument = instr
	c.Delay = delay
	return c
}

func TestBuild_EmptySequence(t *testing.T) {
	sets, err := Build(seq.AnalyzedSequence{Length: 8}, BoundarySet{1: true})
	require.NoError(t, err)
	assert.Nil(t, sets)
}

func TestBuild_TwoSetsAtBoundary(t *testing.T) {
	// One marked boundary splits an 8-line source into two sets.
	a := analyzed(8, map[int]seq.Cell{
		1: note(48, 1, 0),
		3: note(50, 1, 0),
		5: note(52, 2, 0),
		7: note(53, 1, 0),
	})
	sets, err := Build(a, BoundarySet{2: true})
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, 1, sets[0].StartLine)
	assert.Equal(t, 4, sets[0].EndLine)
	assert.Len(t, sets[0].Events, 2)

	assert.Equal(t, 5, sets[1].StartLine)
	assert.Equal(t, 8, sets[1].EndLine)
	assert.Len(t, sets[1].Events, 2)
}

func TestBuild_FirstEntryAlwaysOrigin(t *testing.T) {
	a := analyzed(8, map[int]seq.Cell{
		2: note(48, 1, 120),
		4: note(50, 2, 30),
		6: note(52, 1, 90),
	})
	sets, err := Build(a, BoundarySet{2: true})
	require.NoError(t, err)

	for _, set := range sets {
		require.NotEmpty(t, set.Relative)
		assert.Equal(t, 1, set.Relative[0].Line)
		assert.Equal(t, 0, set.Relative[0].Delay)
	}
}

func TestBuild_RelativeDelayBorrow(t *testing.T) {
	// Second event's delay is smaller than the first's: the
	// normalized delay borrows one line instead of going negative.
	a := analyzed(8, map[int]seq.Cell{
		1: note(48, 1, 100),
		3: note(50, 1, 40),
	})
	sets, err := Build(a, nil)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	rel := sets[0].Relative
	require.Len(t, rel, 2)

	// 40 - 100 = -60 -> borrow: line 3-1=2, delay 196; relative_line = 2+1-1.
	assert.Equal(t, 2, rel[1].Line)
	assert.Equal(t, 196, rel[1].Delay)
}

func TestBuild_RelativeDelayNoBorrow(t *testing.T) {
	a := analyzed(8, map[int]seq.Cell{
		1: note(48, 1, 10),
		3: note(50, 1, 50),
	})
	sets, err := Build(a, nil)
	require.NoError(t, err)
	rel := sets[0].Relative

	assert.Equal(t, 3, rel[1].Line)
	assert.Equal(t, 40, rel[1].Delay)
}

func TestBuild_BoundaryOnFirstLine(t *testing.T) {
	// A boundary on line 1 must not produce a duplicate leading edge.
	a := analyzed(4, map[int]seq.Cell{
		1: note(48, 2, 0),
		3: note(50, 1, 0),
	})
	sets, err := Build(a, BoundarySet{2: true})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, 1, sets[0].StartLine)
	assert.Equal(t, 4, sets[0].EndLine)
	assert.Len(t, sets[0].Events, 2)
}

func TestBuild_DistanceCarriedThrough(t *testing.T) {
	a := analyzed(8, map[int]seq.Cell{
		1: note(48, 1, 0),
		5: note(50, 2, 0),
	})
	sets, err := Build(a, BoundarySet{2: true})
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, a.Events[0].Distance, sets[0].Relative[0].Distance)
	assert.Equal(t, a.Events[1].Distance, sets[1].Relative[0].Distance)
	assert.Equal(t, 48, sets[0].Relative[0].Note)
	assert.Equal(t, 1, sets[0].Relative[0].Instrument)
}

func TestBuild_TooManyBoundaries(t *testing.T) {
	cells := make(map[int]seq.Cell)
	for i := 0; i < 6; i++ {
		cells[i*2+1] = note(48+i, 9, 0)
	}
	a := analyzed(16, cells)

	sets, err := Build(a, BoundarySet{9: true})
	require.Error(t, err)
	assert.Nil(t, sets)
	assert.True(t, IsConfigError(err))

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeTooManyBoundaries, ce.Code)
}

func TestBuild_MaxBoundariesProducesSixSets(t *testing.T) {
	cells := make(map[int]seq.Cell)
	// One event on line 1, then 5 boundary events spread out with a
	// trailing event after each boundary.
	cells[1] = note(48, 1, 0)
	for i := 0; i < 5; i++ {
		cells[2+i*3] = note(50, 9, 0)
		cells[3+i*3] = note(52, 1, 0)
	}
	a := analyzed(20, cells)

	sets, err := Build(a, BoundarySet{9: true})
	require.NoError(t, err)
	assert.Len(t, sets, 6)
}
