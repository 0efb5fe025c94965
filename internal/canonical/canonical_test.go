package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalScalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"integer float", float64(255), "255"},
		{"negative zero", math.Copysign(0, -1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalNumbersECMAScript(t *testing.T) {
	// RFC 8785 mandates ECMAScript Number::toString serialization.
	tests := []struct {
		value float64
		want  string
	}{
		{1.5, "1.5"},
		{42, "42"},
		{-42.25, "-42.25"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{9007199254740992, "9007199254740992"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Marshal(v)
		require.Error(t, err)
	}
}

func TestMarshalRejectsBinary(t *testing.T) {
	_, err := Marshal([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binary")
}

func TestKeyOrderIndependence(t *testing.T) {
	// Two objects differing only in key insertion order must serialize
	// identically.
	a := map[string]any{}
	a["zebra"] = "z"
	a["apple"] = 1
	a["mango"] = true

	b := map[string]any{}
	b["mango"] = true
	b["apple"] = 1
	b["zebra"] = "z"

	ca, err := Marshal(a)
	require.NoError(t, err)
	cb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `{"apple":1,"mango":true,"zebra":"z"}`, string(ca))
}

func TestUTF16KeyOrdering(t *testing.T) {
	// RFC 8785 sorts keys by UTF-16 code units: uppercase before
	// lowercase for ASCII.
	obj := map[string]any{
		"a": 1, "A": 2, "aa": 3, "aA": 4, "Aa": 5, "AA": 6,
	}
	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"A":2,"AA":6,"Aa":5,"a":1,"aA":4,"aa":3}`, string(got))
}

func TestStringEscaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"no html escaping", "<a>&</a>", `"<a>&</a>"`},
		{"control characters", "a\nb\tc", `"a\nb\tc"`},
		{"quote and backslash", `say "hi" \now`, `"say \"hi\" \\now"`},
		{"low control", "\x01", `"\u0001"`},
		{"line separator literal", "a b", "\"a b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestNFCNormalization(t *testing.T) {
	// U+00E9 (é) and U+0065 U+0301 (e + combining acute) must serialize
	// identically.
	composed := "café"
	decomposed := "café"

	ca, err := Marshal(composed)
	require.NoError(t, err)
	cd, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cd))
}

func TestNestedStructures(t *testing.T) {
	value := map[string]any{
		"outer": []any{
			1,
			"two",
			map[string]any{"b": nil, "a": []any{true, false}},
		},
	}
	got, err := Marshal(value)
	require.NoError(t, err)
	assert.Equal(t, `{"outer":[1,"two",{"a":[true,false],"b":null}]}`, string(got))
}

func TestMarshalRejectsUnsupportedType(t *testing.T) {
	_, err := Marshal(struct{ X int }{X: 1})
	require.Error(t, err)

	_, err = Marshal(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}
