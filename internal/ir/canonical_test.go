package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"integral number", Number(42), "42"},
		{"fraction", Number(0.5), "0.5"},
		{"negative", Number(-100), "-100"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"bigint", BigIntFromInt64(7), `"7"`},
		{"bytes", Bytes("hi"), `"aGk="`},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"native map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Number(1), "a": Number(2)},
		"a": Number(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	decomposed, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by "u2028" text stays escaped.
	result, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Number(math.Inf(-1)))
	assert.Error(t, err)
}

func TestMarshalCanonicalEqualObjectsEqualBytes(t *testing.T) {
	a := Object{"x": Array{Number(1), String("y")}, "k": Bool(false)}
	b := Object{"k": Bool(false), "x": Array{Number(1), String("y")}}

	ab, err := MarshalCanonical(a)
	require.NoError(t, err)
	bb, err := MarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}
