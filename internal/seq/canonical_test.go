package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b": 2,
		"a": 1,
		"c": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":"x"}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"s": "<a> & <b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a> & <b>"}`, string(data))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_NestedDeterminism(t *testing.T) {
	v := map[string]any{
		"timing": []any{
			map[string]any{"relative_line": 1, "delay": 0},
			map[string]any{"relative_line": 3, "delay": 128},
		},
		"kind": "breakpoint",
	}
	first, err := MarshalCanonical(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(v)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestFingerprint_StableAcrossKeyOrder(t *testing.T) {
	a, err := Fingerprint(map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex sha256")
}
