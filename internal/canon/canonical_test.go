package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": []any{true, nil, "x"}, "c": map[string]any{"z": 0, "y": -3}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,"x"],"b":1,"c":{"y":-3,"z":0}}`, string(got))
}

func TestMarshal_StructTags(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		Page  int    `json:"page"`
		Skip  string `json:"-"`
		Empty string `json:"empty,omitempty"`
	}
	got, err := Marshal([]row{{Name: "Ada", Page: 2, Skip: "x"}})
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Ada","page":2}]`, string(got))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshal_EscapesControlCharacters(t *testing.T) {
	got, err := Marshal("a\"b\\c\nd\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"a\\\"b\\\\c\\nd\\u0001 \"", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed, err := Marshal("Rene\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"Ren\u00e9\"", string(decomposed))
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.x")
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 is the surrogate pair D83D DE00 in UTF-16, which sorts
	// before U+FF21. Byte order would put it last.
	got, err := Marshal(map[string]any{"\uFF21": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFF21\":1}", string(got))
}

func TestHash_StableAndDomainSeparated(t *testing.T) {
	v := map[string]any{"b": 2, "a": 1}
	h1, err := Hash(DomainSigners, v)
	require.NoError(t, err)
	h2, err := Hash(DomainSigners, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	h3, err := Hash(DomainFields, v)
	require.NoError(t, err)

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
