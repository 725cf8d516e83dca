package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualDifferentKindsAreNeverEqual(t *testing.T) {
	require.False(t, Equal(Nil, Bool(false)))
	require.False(t, Equal(Number(0), Bool(false)))
	require.False(t, Equal(Number(0), Nil))
}

func TestEqualNumbersCompareByValue(t *testing.T) {
	require.True(t, Equal(Number(1.5), Number(1.5)))
	require.False(t, Equal(Number(1.5), Number(2.5)))
}

func TestEqualObjectsCompareByIdentity(t *testing.T) {
	h := NewHeap()
	a := h.InternString("hi")
	b := h.InternString("hi")
	require.True(t, Equal(FromObj(a), FromObj(b)), "interned equal strings must share identity")

	fn1 := h.NewFunction()
	fn2 := h.NewFunction()
	require.False(t, Equal(FromObj(fn1), FromObj(fn2)))
}

func TestIsFalseyOnlyNilAndFalse(t *testing.T) {
	require.True(t, Nil.IsFalsey())
	require.True(t, Bool(false).IsFalsey())
	require.False(t, Bool(true).IsFalsey())
	require.False(t, Number(0).IsFalsey())

	h := NewHeap()
	require.False(t, FromObj(h.InternString("")).IsFalsey())
}

func TestStringRendering(t *testing.T) {
	require.Equal(t, "nil", Nil.String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "false", Bool(false).String())
	require.Equal(t, "3.5", Number(3.5).String())
	require.Equal(t, "3", Number(3).String())
}

func TestIsStringAndAsString(t *testing.T) {
	h := NewHeap()
	s := FromObj(h.InternString("hello"))
	require.True(t, s.IsString())
	require.Equal(t, "hello", s.AsString())
	require.False(t, Number(1).IsString())
}
