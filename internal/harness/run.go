package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/slabtone/rebeat/internal/breakset"
	"github.com/slabtone/rebeat/internal/grid"
	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/timing"
)

// Result is the outcome of running a scenario.
type Result struct {
	Target     *grid.Pattern
	Sets       []seq.BreakSet
	Registry   *registry.Registry
	Engine     *place.Engine
	Placements []*place.Result
}

// Run executes a scenario against a fresh registry, engine, and
// target grid. Placement operation IDs are fixed ("op-1", "op-2", ...)
// so results and golden snapshots are deterministic.
func Run(s *Scenario) (*Result, error) {
	target, err := s.Target.Build()
	if err != nil {
		return nil, fmt.Errorf("building target: %w", err)
	}

	var sets []seq.BreakSet
	if s.Source != nil {
		sets, err = splitSource(s.Source)
		if err != nil {
			return nil, fmt.Errorf("splitting source: %w", err)
		}
	}

	placeCount := 0
	for _, step := range s.Steps {
		if step.Place != nil {
			placeCount++
		}
	}
	ids := make([]string, placeCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("op-%d", i+1)
	}

	reg := registry.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := place.NewEngine(reg, place.NewFixedGenerator(ids...), logger)

	res := &Result{
		Target:   target,
		Sets:     sets,
		Registry: reg,
		Engine:   engine,
	}

	// Placement chains continue into successors; track the container
	// the chain currently points at.
	var container place.Container = target

	for i, step := range s.Steps {
		switch {
		case step.Assign != nil:
			if err := runAssign(step.Assign, sets, reg); err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
		case step.Place != nil:
			placed, err := runPlace(step.Place, sets, engine, container)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
			res.Placements = append(res.Placements, placed)
			container = placed.Container
		case step.Capture != nil:
			if err := runCapture(step.Capture, target, reg); err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
		case step.Cursor != nil:
			target.SetCursor(step.Cursor.Track, step.Cursor.Line)
			engine.OnCursorMoved(step.Cursor.Track, step.Cursor.Line)
		case step.Reset:
			engine.Reset()
		}
	}
	return res, nil
}

// splitSource analyzes the source rows and cuts them at the boundary
// channels.
func splitSource(src *SourceSpec) ([]seq.BreakSet, error) {
	length := src.Length
	for _, cell := range src.Cells {
		if cell.Line > length {
			length = cell.Line
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("source has no cells and no length")
	}

	rows := make([]seq.Cell, length)
	for i := range rows {
		rows[i] = seq.EmptyCell()
	}
	for _, cell := range src.Cells {
		if cell.Line < 1 || cell.Line > length {
			return nil, fmt.Errorf("source cell line %d outside 1-%d", cell.Line, length)
		}
		if cell.Delay < 0 || cell.Delay > seq.MaxDelay {
			return nil, fmt.Errorf("source cell delay %d outside 0-%d", cell.Delay, seq.MaxDelay)
		}
		row := seq.EmptyCell()
		row.Note = cell.Note
		if cell.Instrument != nil {
			row.Instrument = *cell.Instrument
		}
		row.Delay = cell.Delay
		rows[cell.Line-1] = row
	}

	var bounds breakset.BoundarySet
	if len(src.Boundaries) > 0 {
		bounds = make(breakset.BoundarySet, len(src.Boundaries))
		for _, ch := range src.Boundaries {
			bounds[ch] = true
		}
	}

	return breakset.Build(timing.Analyze(rows), bounds)
}

func runAssign(step *AssignStep, sets []seq.BreakSet, reg *registry.Registry) error {
	key, err := symbolKey(step.Symbol)
	if err != nil {
		return err
	}
	if step.Set < 0 || step.Set >= len(sets) {
		return fmt.Errorf("assign: set %d out of range (source has %d sets)", step.Set, len(sets))
	}
	set := sets[step.Set]
	instrument := step.Instrument
	if instrument == 0 {
		instrument = seq.EmptyInstrument
	}
	return reg.AssignBreakSet(key, &set, instrument)
}

// runCapture stores a line range of the target grid as a
// range-captured symbol.
func runCapture(step *CaptureStep, target *grid.Pattern, reg *registry.Registry) error {
	key, err := symbolKey(step.Symbol)
	if err != nil {
		return err
	}
	rows, err := target.Range(step.Track, step.Start, step.End)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	instrument := step.Instrument
	if instrument == 0 {
		instrument = seq.EmptyInstrument
	}
	return reg.CaptureRange(key, rows, instrument, registry.Capture{
		PatternIndex: target.Index(),
		TrackIndex:   step.Track,
		StartLine:    step.Start,
		EndLine:      step.End,
	})
}

func runPlace(step *PlaceStep, sets []seq.BreakSet, engine *place.Engine, container place.Container) (*place.Result, error) {
	req := place.Request{BreakString: step.BreakString}

	if step.Symbol != "" {
		key, err := symbolKey(step.Symbol)
		if err != nil {
			return nil, err
		}
		req.Symbol = key
	}
	if step.BreakString != "" {
		refs := make([]*seq.BreakSet, len(sets))
		for i := range sets {
			refs[i] = &sets[i]
		}
		req.Sets = refs
	}

	var err error
	if step.Overflow != "" {
		if req.Overflow, err = place.ParseOverflowPolicy(step.Overflow); err != nil {
			return nil, err
		}
	}
	if step.Overwrite != "" {
		if req.Overwrite, err = place.ParseOverwritePolicy(step.Overwrite); err != nil {
			return nil, err
		}
	}
	if step.Instrument != "" {
		if req.Instrument, err = place.ParseInstrumentSource(step.Instrument); err != nil {
			return nil, err
		}
	}

	return engine.Place(req, container)
}

func symbolKey(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 || !registry.ValidKey(runes[0]) {
		return 0, fmt.Errorf("invalid symbol key %q", s)
	}
	return runes[0], nil
}
