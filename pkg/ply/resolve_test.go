package ply

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_TypedColumns(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		want string
	}{
		{"int8", Values[int8]{1}, "char"},
		{"uint8", Values[uint8]{1}, "uchar"},
		{"int16", Values[int16]{1}, "short"},
		{"uint16", Values[uint16]{1}, "ushort"},
		{"int32", Values[int32]{1}, "int"},
		{"uint32", Values[uint32]{1}, "uint"},
		{"float32", Values[float32]{1}, "float"},
		{"float64", Values[float64]{1}, "double"},
		{"lists", Lists[int32]{{0, 1, 2}}, "list uchar int"},
		{"float lists", Lists[float32]{{0.5}}, "list uchar float"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := tt.col.Type()
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.String())
		})
	}
}

func TestResolve_NamedElementType(t *testing.T) {
	type index uint16
	typ, err := Values[index]{1, 2}.Type()
	require.NoError(t, err)
	assert.Equal(t, "ushort", typ.String())
}

func TestResolve_SniffedGoSlices(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"float32 slice keeps kind", []float32{0, 1}, "float"},
		{"uint8 slice keeps kind", []uint8{0, 255}, "uchar"},
		{"int slice", []int{0, 1, -7}, "int"},
		{"int64 beyond 32 bits", []int64{0, 1 << 40}, "double"},
		{"integral float64", []float64{0, 1, 2}, "int"},
		{"fractional float64", []float64{0, 1, 2.5}, "double"},
		{"generic numbers", []any{1, 2.0, uint8(3)}, "int"},
		{"int32 lists keep kind", [][]int32{{1, 2, 3}}, "list uchar int"},
		{"int lists", [][]int{{0, 1, 2}, {2, 3}}, "list uchar int"},
		{"array elements", [][3]int{{0, 1, 2}}, "list uchar int"},
		{"nested lists", [][][]int{{{1}, {2, 3}}, {}}, "list uchar list uchar int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.String())
		})
	}
}

func TestResolve_SingleNonIntegerFlipsWholeColumn(t *testing.T) {
	values := make([]any, 100)
	for i := range values {
		values[i] = i
	}
	typ, err := Resolve(values)
	require.NoError(t, err)
	assert.Equal(t, "int", typ.String())

	values[57] = 3.25
	typ, err = Resolve(values)
	require.NoError(t, err)
	assert.Equal(t, "double", typ.String())
}

func TestResolve_WiderSubtypeAnywhereUpgradesList(t *testing.T) {
	// the widening value is in the last record, not the first
	typ, err := Resolve([]any{
		[]any{0, 1, 2},
		[]any{3, 4, 5},
		[]any{6, 7, 8.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "list uchar double", typ.String())

	typ, err = Resolve([]any{
		[]any{[]any{1}},
		[]any{[]any{2}, make([]any, 300)},
	})
	require.Error(t, err, "nil inner values are not numbers")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	long := make([]any, 300)
	for i := range long {
		long[i] = 0.5
	}
	typ, err = Resolve([]any{
		[]any{[]any{1}},
		[]any{[]any{2}, long},
	})
	require.NoError(t, err)
	assert.Equal(t, "list uchar list ushort double", typ.String())
}

func TestResolve_CountTypeBoundaries(t *testing.T) {
	tests := []struct {
		maxLen int
		want   string
	}{
		{255, "list uchar int"},
		{256, "list ushort int"},
		{65535, "list ushort int"},
		{65536, "list uint int"},
	}
	for _, tt := range tests {
		// the longest list sits behind a short one
		lists := [][]int{{1, 2}, make([]int, tt.maxLen)}
		typ, err := Resolve(lists)
		require.NoError(t, err)
		assert.Equal(t, tt.want, typ.String(), "max length %d", tt.maxLen)

		typed := Lists[int32]{{1}, make([]int32, tt.maxLen)}
		typ, err = typed.Type()
		require.NoError(t, err)
		assert.Equal(t, tt.want, typ.String(), "typed max length %d", tt.maxLen)
	}
}

func TestResolve_EmptyLists(t *testing.T) {
	typ, err := Resolve([][]int{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar int", typ.String())

	typ, err = Resolve([]any{[]any{}, []any{1.5}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar double", typ.String())

	typ, err = Resolve([]int{})
	require.NoError(t, err)
	assert.Equal(t, "int", typ.String())
}

func TestResolve_NestedTypedSlicesKeepKind(t *testing.T) {
	typ, err := Resolve([][][]float32{{{0.5, 1}}, {{2}}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar list uchar float", typ.String())

	typ, err = Resolve([]any{[]uint8{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar uchar", typ.String())

	typ, err = Resolve([]any{[]uint8{1, 2}, []uint16{300}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar double", typ.String())

	typ, err = Resolve([]any{[]int32{}, []int16{1}})
	require.NoError(t, err)
	assert.Equal(t, "list uchar short", typ.String())
}

func TestResolve_JSONNumbers(t *testing.T) {
	values := []any{json.Number("1"), json.Number("2"), json.Number("3")}
	typ, err := Resolve(values)
	require.NoError(t, err)
	assert.Equal(t, "int", typ.String())

	values = append(values, json.Number("0.25"))
	typ, err = Resolve(values)
	require.NoError(t, err)
	assert.Equal(t, "double", typ.String())
}

func TestResolve_Unsupported(t *testing.T) {
	for name, input := range map[string]any{
		"nil":           nil,
		"number":        42,
		"string":        "abc",
		"strings":       []string{"a", "b"},
		"bools":         []bool{true},
		"map":           map[string]int{"a": 1},
		"mixed":         []any{1, []any{2}},
		"mixed lists":   []any{[]any{1}, 2},
		"nil element":   []any{1, nil},
		"nested string": []any{[]any{"x"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(input)
			assert.ErrorIs(t, err, ErrUnsupportedType)
		})
	}
}

func TestDeclare(t *testing.T) {
	col, err := Sniff([]any{[]any{0, 1, 2}, []any{2, 3, 0}})
	require.NoError(t, err)

	typ, err := Declare(ListOf(UChar, Scalar(UInt)), col).Type()
	require.NoError(t, err)
	assert.Equal(t, "list uchar uint", typ.String())

	_, err = Declare(Scalar(Float), col).Type()
	assert.ErrorIs(t, err, ErrUnsupportedType, "depth mismatch")

	long := Lists[int32]{make([]int32, 200)}
	_, err = Declare(ListOf(Char, Scalar(Int)), long).Type()
	assert.ErrorIs(t, err, ErrCountOverflow)

	typ, err = Declare(Scalar(Float), Values[float64]{1, 2}).Type()
	require.NoError(t, err)
	assert.Equal(t, "float", typ.String())
}

func TestGroup_OrderAndLength(t *testing.T) {
	g := NewGroup().
		Add("z", Values[float32]{1, 2}).
		Add("x", Values[float32]{3, 4}).
		Add("y", Values[float32]{5, 6})
	assert.Equal(t, []string{"z", "x", "y"}, g.Names())

	n, err := g.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	g.Add("x", Values[float32]{7, 8})
	assert.Equal(t, []string{"z", "x", "y"}, g.Names(), "replacing keeps position")
	col, ok := g.Column("x")
	require.True(t, ok)
	assert.Equal(t, 7.0, col.Float(0))

	g.Add("w", Values[float32]{1})
	_, err = g.Len()
	assert.ErrorIs(t, err, ErrMismatchedLength)

	var empty *Group
	n, err = empty.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, empty.Names())

	var zero Group
	require.NoError(t, zero.Set("a", []int{1}))
	assert.Equal(t, []string{"a"}, zero.Names())
	assert.Error(t, zero.Set("b", "nope"))
}
