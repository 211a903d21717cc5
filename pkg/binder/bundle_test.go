package binder

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_RoundTrip(t *testing.T) {
	proc := NewProcess(1, 10001, "com.example")
	token := NewBinder(proc, "", nil)

	nested := NewBundle()
	nested.PutInt("inner", 42)

	b := NewBundle()
	b.PutString("s", "value")
	b.PutCharSequence("cs", "text")
	b.PutInt("i", -1)
	b.PutLong("l", 1<<33)
	b.PutFloat("f", 0.5)
	b.PutDouble("d", 2.5)
	b.PutBool("b", true)
	b.PutStringArray("sa", []string{"x", "y"})
	b.PutBundle("nested", nested)
	b.PutParcelable("p", &testParcelable{Name: "n", Count: 9})
	b.PutParcelableList("pl", []Parcelable{&testParcelable{Name: "a"}, &testParcelable{Name: "b"}})
	b.PutBinder("binder", token)

	in := Transfer(proc, func(p *Parcel) { p.WriteBundle(b) })
	defer in.Recycle()
	got := in.ReadBundle()
	require.NoError(t, in.Err())
	require.NotNil(t, got)
	require.NoError(t, got.Unparcel())

	assert.Equal(t, "value", got.GetString("s"))
	assert.Equal(t, "text", got.GetCharSequence("cs"))
	assert.Equal(t, -1, got.GetInt("i", 0))
	assert.Equal(t, int64(1<<33), got.GetLong("l", 0))
	assert.Equal(t, float32(0.5), got.GetFloat("f", 0))
	assert.Equal(t, 2.5, got.GetDouble("d", 0))
	assert.True(t, got.GetBool("b", false))
	assert.Equal(t, []string{"x", "y"}, got.GetStringArray("sa"))
	assert.Equal(t, 42, got.GetBundle("nested").GetInt("inner", 0))
	assert.Equal(t, "n", got.GetParcelable("p").(*testParcelable).Name)
	assert.Len(t, got.GetParcelableList("pl"), 2)
	assert.Same(t, token, got.GetBinder("binder"))
	assert.Equal(t, b.Keys(), got.Keys())
}

func TestBundle_Defaults(t *testing.T) {
	var nilBundle *Bundle
	assert.Equal(t, -1, nilBundle.GetInt("missing", -1))
	assert.Equal(t, "", nilBundle.GetString("missing"))
	assert.False(t, nilBundle.ContainsKey("missing"))
	assert.True(t, nilBundle.IsEmpty())

	b := NewBundle()
	b.PutString("k", "v")
	assert.Equal(t, 7, b.GetInt("k", 7), "значение другого типа дает значение по умолчанию")
}

func TestBundle_CorruptPayload(t *testing.T) {
	b := NewBundle()
	b.PutString("ok", "fine")
	b.PutParcelable("bad", unknownParcelable{})

	in := Transfer(nil, func(p *Parcel) { p.WriteBundle(b) })
	defer in.Recycle()
	got := in.ReadBundle()
	require.NoError(t, in.Err(), "Bundle разбирается лениво")

	err := got.Unparcel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadParcelable))
	assert.True(t, got.IsEmpty())
	assert.Equal(t, "", got.GetString("ok"))
}

func TestBundle_EqualAndCopy(t *testing.T) {
	a := NewBundle()
	a.PutInt("page", 1)
	a.PutInt("size", 10)
	inner := NewBundle()
	inner.PutString("x", "y")
	a.PutBundle("inner", inner)

	c := a.Copy()
	assert.True(t, a.Equal(c))

	c.GetBundle("inner").PutString("x", "z")
	assert.False(t, a.Equal(c), "вложенный Bundle копируется")
	assert.Equal(t, "y", a.GetBundle("inner").GetString("x"))

	var n1, n2 *Bundle
	assert.True(t, n1.Equal(n2))
	assert.False(t, a.Equal(nil))
}
