package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/slabtone/rebeat/internal/seq"
)

// Snapshot flattens a run result into plain maps for canonical JSON
// serialization: the final target cells in deterministic order plus
// every placement result. Fixed op IDs from Run keep the output
// byte-stable across runs.
func Snapshot(s *Scenario, res *Result) map[string]any {
	placements := make([]any, len(res.Placements))
	for i, p := range res.Placements {
		placements[i] = map[string]any{
			"op_id":        p.OpID,
			"placed":       p.Placed,
			"skipped":      p.Skipped,
			"truncated":    p.Truncated,
			"start_line":   p.StartLine,
			"next_line":    p.NextLine,
			"transitioned": p.Transitioned,
		}
	}

	fixture := res.Target.Dump()
	cells := make([]any, len(fixture.Cells))
	for i, fc := range fixture.Cells {
		cell := res.Target.Event(fc.Track, fc.Line, fc.Column)
		cells[i] = map[string]any{
			"track":        fc.Track,
			"line":         fc.Line,
			"column":       fc.Column,
			"note":         cell.Note,
			"instrument":   cell.Instrument,
			"delay":        cell.Delay,
			"volume":       cell.Volume,
			"panning":      cell.Panning,
			"effect_id":    cell.EffectID,
			"effect_value": cell.EffectValue,
		}
	}

	return map[string]any{
		"scenario":   s.Name,
		"placements": placements,
		"cells":      cells,
	}
}

// RunWithGolden executes a scenario, checks its expectations, and
// compares the canonical snapshot against the golden file at
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	VerifyT(t, scenario, res)

	data, err := seq.MarshalCanonical(Snapshot(scenario, res))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return res, nil
}
