package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/slabtone/rebeat/internal/grid"
)

// Scenario defines a conformance scenario: a source pattern cut into
// break sets, a target grid, a sequence of registry and placement
// steps, and expectations over the final grid and chain state.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source describes the pattern the break sets are cut from.
	// Optional: scenarios placing only pre-assigned symbols may omit it.
	Source *SourceSpec `yaml:"source,omitempty"`

	// Target is the grid placements are committed to.
	Target grid.Fixture `yaml:"target"`

	// Steps run in order against a fresh engine and registry.
	Steps []Step `yaml:"steps"`

	// Expect validates the final grid, placement results, and chain
	// state.
	Expect []Expectation `yaml:"expect"`
}

// SourceSpec is the analyzed side of a scenario: one track's rows plus
// the boundary channels that cut them into break sets.
type SourceSpec struct {
	// Length is the source pattern length in lines. Defaults to the
	// highest cell line.
	Length int `yaml:"length,omitempty"`

	// Boundaries lists the channel values that mark break-set cuts.
	Boundaries []int `yaml:"boundaries,omitempty"`

	Cells []SourceCell `yaml:"cells"`
}

// SourceCell is one source row. Instrument doubles as the channel
// value for boundary matching, as in the analyzer.
type SourceCell struct {
	Line       int  `yaml:"line"`
	Note       int  `yaml:"note"`
	Instrument *int `yaml:"instrument,omitempty"`
	Delay      int  `yaml:"delay,omitempty"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	// Assign stores a break set under a symbol key.
	Assign *AssignStep `yaml:"assign,omitempty"`

	// Place commits a symbol or break string onto the target.
	Place *PlaceStep `yaml:"place,omitempty"`

	// Capture stores a line range of the target grid under a symbol
	// key as a range-captured symbol.
	Capture *CaptureStep `yaml:"capture,omitempty"`

	// Cursor moves the host cursor and notifies the engine.
	Cursor *CursorStep `yaml:"cursor,omitempty"`

	// Reset abandons the placement chain.
	Reset bool `yaml:"reset,omitempty"`
}

type AssignStep struct {
	Symbol string `yaml:"symbol"`
	// Set is the 0-based break-set index from the source split.
	Set        int `yaml:"set"`
	Instrument int `yaml:"instrument,omitempty"`
}

type PlaceStep struct {
	Symbol      string `yaml:"symbol,omitempty"`
	BreakString string `yaml:"break_string,omitempty"`
	Overflow    string `yaml:"overflow,omitempty"`
	Overwrite   string `yaml:"overwrite,omitempty"`
	Instrument  string `yaml:"instrument,omitempty"`
}

type CaptureStep struct {
	Symbol     string `yaml:"symbol"`
	Track      int    `yaml:"track"`
	Start      int    `yaml:"start"`
	End        int    `yaml:"end"`
	Instrument int    `yaml:"instrument,omitempty"`
}

type CursorStep struct {
	Track int `yaml:"track"`
	Line  int `yaml:"line"`
}

// Expectation validates one aspect of the final state.
type Expectation struct {
	// Type selects the check:
	// - "cell": a grid cell holds the given values
	// - "empty": a grid cell is vacant
	// - "result": fields of the Nth placement result
	// - "chain": engine chain state
	// - "count": total occupied cells on the target
	Type string `yaml:"type"`

	// Successor redirects cell/empty/count checks to the target's
	// successor pattern.
	Successor bool `yaml:"successor,omitempty"`

	Track  int `yaml:"track,omitempty"`
	Line   int `yaml:"line,omitempty"`
	Column int `yaml:"column,omitempty"`

	Note       *int `yaml:"note,omitempty"`
	Instrument *int `yaml:"instrument,omitempty"`
	Delay      *int `yaml:"delay,omitempty"`

	// Step is the 0-based placement index for "result".
	Step         int   `yaml:"step,omitempty"`
	Placed       *int  `yaml:"placed,omitempty"`
	Skipped      *int  `yaml:"skipped,omitempty"`
	Truncated    *int  `yaml:"truncated,omitempty"`
	StartLine    *int  `yaml:"start_line,omitempty"`
	NextLine     *int  `yaml:"next_line,omitempty"`
	Transitioned *bool `yaml:"transitioned,omitempty"`

	Active *bool `yaml:"active,omitempty"`
	Events *int  `yaml:"events,omitempty"`
}

// Expectation type constants.
const (
	ExpectCell   = "cell"
	ExpectEmpty  = "empty"
	ExpectResult = "result"
	ExpectChain  = "chain"
	ExpectCount  = "count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected, which catches typos like "expects:" for "expect:".
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Assign != nil {
			set++
			if step.Assign.Symbol == "" {
				return fmt.Errorf("steps[%d].assign: symbol is required", i)
			}
			if s.Source == nil {
				return fmt.Errorf("steps[%d].assign: scenario has no source to cut sets from", i)
			}
		}
		if step.Place != nil {
			set++
			if step.Place.Symbol == "" && step.Place.BreakString == "" {
				return fmt.Errorf("steps[%d].place: symbol or break_string is required", i)
			}
			if step.Place.Symbol != "" && step.Place.BreakString != "" {
				return fmt.Errorf("steps[%d].place: symbol and break_string are mutually exclusive", i)
			}
		}
		if step.Capture != nil {
			set++
			if step.Capture.Symbol == "" {
				return fmt.Errorf("steps[%d].capture: symbol is required", i)
			}
			if step.Capture.Start < 1 || step.Capture.End < step.Capture.Start {
				return fmt.Errorf("steps[%d].capture: range %d-%d is invalid",
					i, step.Capture.Start, step.Capture.End)
			}
		}
		if step.Cursor != nil {
			set++
		}
		if step.Reset {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of assign, place, capture, cursor, reset is required", i)
		}
	}

	for i, exp := range s.Expect {
		switch exp.Type {
		case ExpectCell:
			if exp.Note == nil && exp.Instrument == nil && exp.Delay == nil {
				return fmt.Errorf("expect[%d]: cell check needs at least one of note, instrument, delay", i)
			}
		case ExpectEmpty:
		case ExpectResult:
		case ExpectChain:
			if exp.Active == nil && exp.NextLine == nil {
				return fmt.Errorf("expect[%d]: chain check needs active or next_line", i)
			}
		case ExpectCount:
			if exp.Events == nil {
				return fmt.Errorf("expect[%d]: count check needs events", i)
			}
		case "":
			return fmt.Errorf("expect[%d]: type is required", i)
		default:
			return fmt.Errorf("expect[%d]: unknown expectation type %q", i, exp.Type)
		}
	}
	return nil
}
