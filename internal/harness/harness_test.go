package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_SingleNote(t *testing.T) {
	s := loadScenario(t, "single-note.yaml")

	assert.Equal(t, "single-note", s.Name)
	require.NotNil(t, s.Source)
	assert.Equal(t, 2, s.Source.Length)
	require.Len(t, s.Steps, 2)
	require.NotNil(t, s.Steps[0].Assign)
	require.NotNil(t, s.Steps[1].Place)
	assert.Equal(t, "A", s.Steps[1].Place.Symbol)
}

func TestRunWithGolden_SingleNote(t *testing.T) {
	s := loadScenario(t, "single-note.yaml")

	res, err := RunWithGolden(t, s)
	require.NoError(t, err)

	require.Len(t, res.Placements, 1)
	assert.Equal(t, "op-1", res.Placements[0].OpID)
}

func TestRun_ChainedExtend(t *testing.T) {
	s := loadScenario(t, "chained-extend.yaml")

	res, err := Run(s)
	require.NoError(t, err)
	VerifyT(t, s, res)

	require.Len(t, res.Sets, 2)
	assert.Equal(t, 1, res.Sets[0].StartLine)
	assert.Equal(t, 3, res.Sets[1].StartLine)
}

func TestRun_LoopReplace(t *testing.T) {
	s := loadScenario(t, "loop-replace.yaml")

	res, err := Run(s)
	require.NoError(t, err)
	VerifyT(t, s, res)
}

func TestRun_NextPatternSplit(t *testing.T) {
	s := loadScenario(t, "next-pattern-split.yaml")

	res, err := Run(s)
	require.NoError(t, err)
	VerifyT(t, s, res)

	require.Len(t, res.Placements, 1)
	assert.True(t, res.Placements[0].Transitioned)
}

func TestRun_CaptureEcho(t *testing.T) {
	s := loadScenario(t, "capture-echo.yaml")

	res, err := Run(s)
	require.NoError(t, err)
	VerifyT(t, s, res)

	sym, err := res.Registry.Get('E')
	require.NoError(t, err)
	require.NotNil(t, sym.Capture)
	assert.Equal(t, 1, sym.Capture.StartLine)
	assert.Equal(t, 4, sym.Capture.EndLine)
}

func TestVerify_ReportsMismatch(t *testing.T) {
	s := loadScenario(t, "single-note.yaml")

	res, err := Run(s)
	require.NoError(t, err)

	wrong := 99
	s.Expect[0].Note = &wrong

	errs := Verify(s, res)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "note")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "no-such.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadScenario_RejectsUnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: a field name typo must not be silently dropped
target: {tracks: 1, lines: 4, columns: 1}
steps:
  - reset: true
expects:
  - type: count
    events: 0
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: `
description: d
steps:
  - reset: true
expect:
  - {type: count, events: 0}
`,
			want: "name is required",
		},
		{
			name: "missing steps",
			body: `
name: x
description: d
expect:
  - {type: count, events: 0}
`,
			want: "steps list is required",
		},
		{
			name: "missing expect",
			body: `
name: x
description: d
steps:
  - reset: true
`,
			want: "expect list is required",
		},
		{
			name: "assign without source",
			body: `
name: x
description: d
steps:
  - assign: {symbol: A, set: 0}
expect:
  - {type: count, events: 0}
`,
			want: "no source",
		},
		{
			name: "place with both symbol and break string",
			body: `
name: x
description: d
steps:
  - place: {symbol: A, break_string: AB}
expect:
  - {type: count, events: 0}
`,
			want: "mutually exclusive",
		},
		{
			name: "step with nothing set",
			body: `
name: x
description: d
steps:
  - {}
expect:
  - {type: count, events: 0}
`,
			want: "exactly one of",
		},
		{
			name: "cell expectation without fields",
			body: `
name: x
description: d
steps:
  - reset: true
expect:
  - {type: cell, track: 0, line: 1, column: 0}
`,
			want: "at least one of",
		},
		{
			name: "unknown expectation type",
			body: `
name: x
description: d
steps:
  - reset: true
expect:
  - {type: cells, events: 0}
`,
			want: "unknown expectation type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
