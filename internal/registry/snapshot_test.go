package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.AssignBreakSet('A', testSet(), 3))
	require.NoError(t, r.Put('7', &Symbol{
		Kind:       KindRangeCaptured,
		Instrument: 5,
		Set:        testSet(),
		Capture:    &Capture{PatternIndex: 2, TrackIndex: 1, StartLine: 17, EndLine: 24},
	}))
	return r
}

func TestSnapshot_YAMLRoundTrip(t *testing.T) {
	r := populated(t)

	data, err := r.Snapshot().EncodeYAML()
	require.NoError(t, err)

	snap, err := DecodeYAML(data)
	require.NoError(t, err)

	restored, err := FromSnapshot(snap)
	require.NoError(t, err)
	require.Equal(t, 2, restored.Len())

	a, err := restored.Get('A')
	require.NoError(t, err)
	assert.Equal(t, KindBreakpointDerived, a.Kind)
	assert.Equal(t, 3, a.Instrument)
	assert.Nil(t, a.Capture)
	assert.Equal(t, testSet().Relative, a.Set.Relative)

	cap7, err := restored.Get('7')
	require.NoError(t, err)
	assert.Equal(t, KindRangeCaptured, cap7.Kind)
	require.NotNil(t, cap7.Capture)
	assert.Equal(t, &Capture{PatternIndex: 2, TrackIndex: 1, StartLine: 17, EndLine: 24}, cap7.Capture)
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	r := populated(t)

	data, err := r.Snapshot().EncodeJSON()
	require.NoError(t, err)

	snap, err := DecodeJSON(data)
	require.NoError(t, err)

	restored, err := FromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Len())
}

func TestSnapshot_UnknownKindRejected(t *testing.T) {
	snap := &Snapshot{Symbols: map[string]SymbolRecord{
		"A": {Kind: "mystery"},
	}}
	_, err := FromSnapshot(snap)
	assert.ErrorContains(t, err, "unknown symbol kind")
}

func TestSnapshot_InvalidKeyRejected(t *testing.T) {
	snap := &Snapshot{Symbols: map[string]SymbolRecord{
		"AB": {Kind: "breakpoint"},
	}}
	_, err := FromSnapshot(snap)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidKey, re.Code)
}

func TestSnapshot_CapturedMissingFieldsRejected(t *testing.T) {
	snap := &Snapshot{Symbols: map[string]SymbolRecord{
		"A": {Kind: "captured"},
	}}
	_, err := FromSnapshot(snap)
	assert.ErrorContains(t, err, "missing capture fields")
}

func TestSnapshot_FingerprintStable(t *testing.T) {
	a, err := populated(t).Snapshot().Fingerprint()
	require.NoError(t, err)
	b, err := populated(t).Snapshot().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSnapshot_FingerprintChangesWithContent(t *testing.T) {
	r := populated(t)
	before, err := r.Snapshot().Fingerprint()
	require.NoError(t, err)

	r.Remove('7')
	after, err := r.Snapshot().Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSnapshot_FingerprintSurvivesEncodeDecode(t *testing.T) {
	r := populated(t)
	orig, err := r.Snapshot().Fingerprint()
	require.NoError(t, err)

	data, err := r.Snapshot().EncodeYAML()
	require.NoError(t, err)
	snap, err := DecodeYAML(data)
	require.NoError(t, err)

	decoded, err := snap.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, orig, decoded)
}
