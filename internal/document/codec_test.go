package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"big": 12345678901234567890, "f": 1.50}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), m["big"])
	assert.Equal(t, json.Number("1.50"), m["f"])
}

func TestDecodeRejects(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} x`, `{"a":1}{"b":2}`} {
		_, err := Decode([]byte(in))
		require.ErrorIs(t, err, ErrInvalidDocument, in)
	}
	// scalars and arrays are valid documents
	_, err := Decode([]byte(` [1, 2] `))
	require.NoError(t, err)
}

func TestEncodeLayout(t *testing.T) {
	v, err := Decode([]byte(`{"b": "<x>", "a": [1, {"d": 2, "c": 3}]}`))
	require.NoError(t, err)
	out, err := Encode(v)
	require.NoError(t, err)
	want := "{\n" +
		"    \"a\": [\n" +
		"        1,\n" +
		"        {\n" +
		"            \"c\": 3,\n" +
		"            \"d\": 2\n" +
		"        }\n" +
		"    ],\n" +
		"    \"b\": \"<x>\"\n" +
		"}\n"
	require.Equal(t, want, string(out))
}

func TestClone(t *testing.T) {
	v, err := Decode([]byte(`{"a": {"b": [1, 2]}}`))
	require.NoError(t, err)
	c := Clone(v)
	c.(map[string]any)["a"].(map[string]any)["b"].([]any)[0] = "changed"
	assert.Equal(t, json.Number("1"), v.(map[string]any)["a"].(map[string]any)["b"].([]any)[0])
}

func TestGrouping(t *testing.T) {
	require.Equal(t, "user", Prefix("user_20240102_030405"))
	require.Equal(t, "plain", Prefix("plain"))
	require.Equal(t, "", Prefix("_x"))

	groups := GroupByPrefix([]string{"b_2", "a_1", "b_1", "c"})
	require.Equal(t, map[string][]string{"a": {"a_1"}, "b": {"b_1", "b_2"}, "c": {"c"}}, groups)
	require.Equal(t, []string{"a", "b", "c"}, SortedPrefixes(groups))
}

func TestValidateKey(t *testing.T) {
	for _, k := range []string{"", ".", "..", "a/b", `a\b`, "a\x00"} {
		require.ErrorIs(t, ValidateKey(k), ErrInvalidKey, "%q", k)
	}
	require.NoError(t, ValidateKey("user_20240102_030405-2"))
}

func TestStorageErrorIsStorageIO(t *testing.T) {
	base := errors.New("disk full")
	err := error(&StorageError{Op: "write", Key: "k", Path: "/d/k.json", Err: base})
	require.ErrorIs(t, err, ErrStorageIO)
	require.ErrorIs(t, err, base)
	require.Contains(t, err.Error(), `write "k"`)
}
