package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_SetKeepsInsertionOrder(t *testing.T) {
	d := New()
	d.Set("b", 1)
	d.Set("a", 2)
	d.Set("c", 3)
	d.Set("a", 4)

	assert.Equal(t, []string{"b", "a", "c"}, d.Keys())
	v, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestDocument_ZeroValue(t *testing.T) {
	var d Document
	assert.Equal(t, 0, d.Len())
	_, ok := d.Get("missing")
	assert.False(t, ok)

	d.Set("x", nil)
	assert.True(t, d.Has("x"))
	assert.Equal(t, 1, d.Len())
}

func TestDocument_Delete(t *testing.T) {
	d := New()
	d.Set("a", 1)
	d.Set("b", 2)
	d.Set("c", 3)

	d.Delete("b")
	d.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, d.Keys())
	assert.False(t, d.Has("b"))
}

func TestFromMap_SortsAndNests(t *testing.T) {
	d := FromMap(map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"y": 1, "x": 2},
		"list":  []any{map[string]any{"k": "v"}},
	})

	assert.Equal(t, []string{"alpha", "list", "zeta"}, d.Keys())

	nested, _ := d.Get("alpha")
	require.IsType(t, Document{}, nested)
	assert.Equal(t, []string{"x", "y"}, nested.(Document).Keys())

	list, _ := d.Get("list")
	require.IsType(t, []any{}, list)
	assert.IsType(t, Document{}, list.([]any)[0])
}

func TestDocument_CloneIsDeep(t *testing.T) {
	inner := New()
	inner.Set("n", int64(1))
	d := New()
	d.Set("inner", inner)
	d.Set("list", []any{"a"})

	c := d.Clone()
	ci, _ := c.Get("inner")
	cinner := ci.(Document)
	cinner.Set("n", int64(2))
	c.Set("inner", cinner)

	orig, _ := d.Get("inner")
	n, _ := orig.(Document).Get("n")
	assert.Equal(t, int64(1), n)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	input := `{"_id":"abc","name":"Ada","age":36,"score":1.5,"tags":["x","y"],"nested":{"z":true,"a":null}}`

	d, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "name", "age", "score", "tags", "nested"}, d.Keys())

	age, _ := d.Get("age")
	assert.Equal(t, int64(36), age)
	score, _ := d.Get("score")
	assert.Equal(t, 1.5, score)

	nested, _ := d.Get("nested")
	require.IsType(t, Document{}, nested)
	assert.Equal(t, []string{"z", "a"}, nested.(Document).Keys())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, input, string(out))
}

func TestDocument_UnmarshalRejectsNonObject(t *testing.T) {
	var d Document
	err := d.UnmarshalJSON([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDocument_TypeName(t *testing.T) {
	d := New()
	assert.Equal(t, "", d.TypeName())

	d.Set(TypeField, 42)
	assert.Equal(t, "", d.TypeName())

	d.Set(TypeField, "Admin")
	assert.Equal(t, "Admin", d.TypeName())
}

func TestDocument_MarshalIndent(t *testing.T) {
	d := New()
	d.Set("b", 1)
	d.Set("a", "x")

	out, err := d.MarshalIndent("", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": \"x\"\n}", string(out))
}

func TestDocument_BinaryRoundTrip(t *testing.T) {
	d := New()
	d.Set("avatar", []byte{1, 2, 3})
	d.Set("chunks", []any{[]byte{0xff}, "text"})

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"avatar":{"$binary":"AQID"},"chunks":[{"$binary":"/w=="},"text"]}`, string(out))

	var back Document
	require.NoError(t, back.UnmarshalJSON(out))
	avatar, _ := back.Get("avatar")
	assert.Equal(t, []byte{1, 2, 3}, avatar)
	chunks, _ := back.Get("chunks")
	assert.Equal(t, []any{[]byte{0xff}, "text"}, chunks)

	var plain Document
	require.NoError(t, plain.UnmarshalJSON([]byte(`{"meta":{"$binary":"AQID","extra":1}}`)))
	meta, _ := plain.Get("meta")
	assert.IsType(t, Document{}, meta, "only a lone $binary field is unwrapped")

	var bad Document
	assert.Error(t, bad.UnmarshalJSON([]byte(`{"avatar":{"$binary":"%%%"}}`)))
}
