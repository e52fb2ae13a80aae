package harness

import (
	"fmt"
	"testing"

	"github.com/slabtone/rebeat/internal/grid"
)

// Verify checks every expectation against the run result and returns
// one error per failed expectation.
func Verify(s *Scenario, res *Result) []error {
	var errs []error
	for i, exp := range s.Expect {
		if err := verifyOne(&exp, res); err != nil {
			errs = append(errs, fmt.Errorf("expect[%d] (%s): %w", i, exp.Type, err))
		}
	}
	return errs
}

// VerifyT runs Verify and reports each failure on t.
func VerifyT(t *testing.T, s *Scenario, res *Result) {
	t.Helper()
	for _, err := range Verify(s, res) {
		t.Error(err)
	}
}

func verifyOne(exp *Expectation, res *Result) error {
	pattern := res.Target
	if exp.Successor {
		pattern = res.Target.Successor()
		if pattern == nil {
			return fmt.Errorf("target has no successor")
		}
	}

	switch exp.Type {
	case ExpectCell:
		return verifyCell(exp, pattern)

	case ExpectEmpty:
		cell := pattern.Event(exp.Track, exp.Line, exp.Column)
		if !cell.IsEmpty() {
			return fmt.Errorf("cell (%d, %d, %d) holds note %d, expected empty",
				exp.Track, exp.Line, exp.Column, cell.Note)
		}
		return nil

	case ExpectResult:
		return verifyResult(exp, res)

	case ExpectChain:
		state := res.Engine.State()
		if exp.Active != nil && state.Active != *exp.Active {
			return fmt.Errorf("chain active = %v, expected %v", state.Active, *exp.Active)
		}
		if exp.NextLine != nil && state.NextLine != *exp.NextLine {
			return fmt.Errorf("chain next_line = %d, expected %d", state.NextLine, *exp.NextLine)
		}
		return nil

	case ExpectCount:
		if got := pattern.EventCount(); got != *exp.Events {
			return fmt.Errorf("pattern holds %d events, expected %d", got, *exp.Events)
		}
		return nil
	}
	return fmt.Errorf("unknown expectation type %q", exp.Type)
}

func verifyCell(exp *Expectation, pattern *grid.Pattern) error {
	cell := pattern.Event(exp.Track, exp.Line, exp.Column)
	if cell.IsEmpty() {
		return fmt.Errorf("cell (%d, %d, %d) is empty", exp.Track, exp.Line, exp.Column)
	}
	if exp.Note != nil && cell.Note != *exp.Note {
		return fmt.Errorf("cell (%d, %d, %d) note = %d, expected %d",
			exp.Track, exp.Line, exp.Column, cell.Note, *exp.Note)
	}
	if exp.Instrument != nil && cell.Instrument != *exp.Instrument {
		return fmt.Errorf("cell (%d, %d, %d) instrument = %d, expected %d",
			exp.Track, exp.Line, exp.Column, cell.Instrument, *exp.Instrument)
	}
	if exp.Delay != nil && cell.Delay != *exp.Delay {
		return fmt.Errorf("cell (%d, %d, %d) delay = %d, expected %d",
			exp.Track, exp.Line, exp.Column, cell.Delay, *exp.Delay)
	}
	return nil
}

func verifyResult(exp *Expectation, res *Result) error {
	if exp.Step < 0 || exp.Step >= len(res.Placements) {
		return fmt.Errorf("step %d out of range (%d placements)", exp.Step, len(res.Placements))
	}
	placed := res.Placements[exp.Step]

	if exp.Placed != nil && placed.Placed != *exp.Placed {
		return fmt.Errorf("placed = %d, expected %d", placed.Placed, *exp.Placed)
	}
	if exp.Skipped != nil && placed.Skipped != *exp.Skipped {
		return fmt.Errorf("skipped = %d, expected %d", placed.Skipped, *exp.Skipped)
	}
	if exp.Truncated != nil && placed.Truncated != *exp.Truncated {
		return fmt.Errorf("truncated = %d, expected %d", placed.Truncated, *exp.Truncated)
	}
	if exp.StartLine != nil && placed.StartLine != *exp.StartLine {
		return fmt.Errorf("start_line = %d, expected %d", placed.StartLine, *exp.StartLine)
	}
	if exp.NextLine != nil && placed.NextLine != *exp.NextLine {
		return fmt.Errorf("next_line = %d, expected %d", placed.NextLine, *exp.NextLine)
	}
	if exp.Transitioned != nil && placed.Transitioned != *exp.Transitioned {
		return fmt.Errorf("transitioned = %v, expected %v", placed.Transitioned, *exp.Transitioned)
	}
	return nil
}
