package ply

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeVertexColumns() ([]Type, []Column) {
	cols := []Column{
		Values[float32]{0, 1},
		Values[float32]{0, 1},
		Values[float32]{0, 1},
	}
	return []Type{Scalar(Float), Scalar(Float), Scalar(Float)}, cols
}

func TestPlan_ASCIIRecords(t *testing.T) {
	types, cols := cubeVertexColumns()
	p := Compile(FormatASCII, types)

	b, err := p.Encode(cols, 0)
	require.NoError(t, err)
	assert.Equal(t, "0 0 0\n", string(b))

	b, err = p.Encode(cols, 1)
	require.NoError(t, err)
	assert.Equal(t, "1 1 1\n", string(b))

	faces, err := Sniff([][]int{{0, 1, 2}})
	require.NoError(t, err)
	ft, err := faces.Type()
	require.NoError(t, err)
	b, err = Compile(FormatASCII, []Type{ft}).Encode([]Column{faces}, 0)
	require.NoError(t, err)
	assert.Equal(t, "3 0 1 2\n", string(b))
}

func TestPlan_ASCIIScalarText(t *testing.T) {
	cols := []Column{
		Values[float32]{0.1},
		Values[float64]{0.1},
		Values[int8]{-5},
		Values[uint32]{4000000000},
		Values[float64]{1e21},
	}
	types := []Type{Scalar(Float), Scalar(Double), Scalar(Char), Scalar(UInt), Scalar(Double)}
	b, err := Compile(FormatASCII, types).Encode(cols, 0)
	require.NoError(t, err)
	assert.Equal(t, "0.1 0.1 -5 4000000000 1e+21\n", string(b))
}

func TestPlan_ASCIINestedLists(t *testing.T) {
	col, err := Sniff([]any{
		[]any{[]any{1, 2}, []any{}, []any{3}},
	})
	require.NoError(t, err)
	typ, err := col.Type()
	require.NoError(t, err)

	b, err := Compile(FormatASCII, []Type{Scalar(Int), typ}).Encode([]Column{Values[int32]{9}, col}, 0)
	require.NoError(t, err)
	assert.Equal(t, "9 3 2 1 2 0 1 3\n", string(b))
}

func TestPlan_BinaryFixedRecord(t *testing.T) {
	types, cols := cubeVertexColumns()
	p := Compile(FormatBinaryLittleEndian, types)

	size, ok := p.FixedSize()
	require.True(t, ok)
	assert.Equal(t, 12, size)

	b, err := p.Encode(cols, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 12), b)

	b, err = p.Encode(cols, 1)
	require.NoError(t, err)
	one := []byte{0x00, 0x00, 0x80, 0x3f}
	assert.Equal(t, append(append(append([]byte{}, one...), one...), one...), b)
	assert.Equal(t, 12, cap(b), "no slack bytes")
}

func TestPlan_BinaryListRecord(t *testing.T) {
	faces, err := Sniff([][]int{{0, 1, 2}})
	require.NoError(t, err)
	ft, err := faces.Type()
	require.NoError(t, err)

	p := Compile(FormatBinaryLittleEndian, []Type{ft})
	_, fixed := p.FixedSize()
	assert.False(t, fixed)

	b, err := p.Encode([]Column{faces}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		3,
		0, 0, 0, 0,
		1, 0, 0, 0,
		2, 0, 0, 0,
	}, b)
	assert.Equal(t, 13, cap(b))
}

func TestPlan_BinaryBigEndian(t *testing.T) {
	cols := []Column{Values[uint8]{7}, Lists[uint16]{{1, 258}}, Values[float64]{-2}}
	types := []Type{Scalar(UChar), ListOf(UShort, Scalar(UShort)), Scalar(Double)}

	b, err := Compile(FormatBinaryBigEndian, types).Encode(cols, 0)
	require.NoError(t, err)

	want := []byte{7, 0, 2, 0, 1, 1, 2}
	want = binary.BigEndian.AppendUint64(want, math.Float64bits(-2))
	assert.Equal(t, want, b)
}

func TestPlan_BinaryNestedListSize(t *testing.T) {
	col, err := Sniff([]any{
		[]any{[]any{1, 2}, []any{}, []any{3}},
	})
	require.NoError(t, err)
	typ, err := col.Type()
	require.NoError(t, err)
	require.Equal(t, "list uchar list uchar int", typ.String())

	b, err := Compile(FormatBinaryLittleEndian, []Type{Scalar(Float), typ}).Encode([]Column{Values[float32]{0}, col}, 0)
	require.NoError(t, err)

	// float + outer count + (count + 2 ints) + count + (count + 1 int)
	assert.Len(t, b, 4+1+(1+8)+1+(1+4))
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		3,
		2, 1, 0, 0, 0, 2, 0, 0, 0,
		0,
		1, 3, 0, 0, 0,
	}, b)
}

func TestPlan_ExactPayloadSize(t *testing.T) {
	const n = 50
	xs := make(Values[float32], n)
	ids := make(Values[uint16], n)
	ws := make(Values[float64], n)
	for i := range n {
		xs[i] = float32(i) / 3
		ids[i] = uint16(i)
		ws[i] = float64(i) * 1.5
	}
	p := Compile(FormatBinaryLittleEndian, []Type{Scalar(Float), Scalar(UShort), Scalar(Double)})

	var payload []byte
	for i := range n {
		var err error
		payload, err = p.AppendRecord(payload, []Column{xs, ids, ws}, i)
		require.NoError(t, err)
	}
	assert.Len(t, payload, n*(4+2+8))
	assert.Equal(t, ws[n-1], math.Float64frombits(binary.LittleEndian.Uint64(payload[len(payload)-8:])))
}

func TestPlan_Truncation(t *testing.T) {
	b, err := Compile(FormatBinaryLittleEndian, []Type{Scalar(UChar), Scalar(Char)}).
		Encode([]Column{Values[float64]{300.7}, Values[float64]{-1.9}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{44, 0xff}, b)
}

func TestPlan_CountOverflow(t *testing.T) {
	lists := Lists[int32]{{1, 2, 3}}
	typ, err := lists.Type()
	require.NoError(t, err)

	// the caller grew the list after the type was resolved
	lists[0] = make([]int32, 256)

	_, err = Compile(FormatBinaryLittleEndian, []Type{typ}).Encode([]Column{lists}, 0)
	assert.ErrorIs(t, err, ErrCountOverflow)

	_, err = Compile(FormatASCII, []Type{typ}).Encode([]Column{lists}, 0)
	assert.ErrorIs(t, err, ErrCountOverflow)
}

func TestPlan_ColumnCountMismatch(t *testing.T) {
	_, err := Compile(FormatASCII, []Type{Scalar(Int)}).Encode(nil, 0)
	assert.Error(t, err)
}

func TestPlan_Signature(t *testing.T) {
	p := Compile(FormatBinaryBigEndian, []Type{Scalar(Float), ListOf(UChar, Scalar(Int))})
	assert.Equal(t, "binary_big_endian&float,list uchar int", p.Signature())
	assert.Equal(t, FormatBinaryBigEndian, p.Format())
	assert.Len(t, p.Types(), 2)
}

func TestPlanCache_ReusesPlans(t *testing.T) {
	c := NewPlanCache(4)
	types := []Type{Scalar(Float), Scalar(Float)}

	p1 := c.Get(FormatASCII, types)
	p2 := c.Get(FormatASCII, []Type{Scalar(Float), Scalar(Float)})
	assert.Same(t, p1, p2)

	p3 := c.Get(FormatBinaryLittleEndian, types)
	assert.NotSame(t, p1, p3)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestPlanCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewPlanCache(2)
	a := c.Get(FormatASCII, []Type{Scalar(Char)})
	c.Get(FormatASCII, []Type{Scalar(Short)})

	// touch a so that short is the eviction candidate
	assert.Same(t, a, c.Get(FormatASCII, []Type{Scalar(Char)}))
	c.Get(FormatASCII, []Type{Scalar(Int)})
	assert.Equal(t, 2, c.Len())

	_, cached := c.lookup(FormatASCII, []Type{Scalar(Char)})
	assert.True(t, cached)
	_, cached = c.lookup(FormatASCII, []Type{Scalar(Short)})
	assert.False(t, cached)
}

func TestPlanCache_ConcurrentGet(t *testing.T) {
	c := NewPlanCache(8)
	types := []Type{Scalar(Float), ListOf(UChar, Scalar(Int))}

	var wg sync.WaitGroup
	plans := make([]*Plan, 16)
	for i := range plans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plans[i] = c.Get(FormatBinaryLittleEndian, types)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	for _, p := range plans {
		assert.Equal(t, plans[0].Signature(), p.Signature())
	}
}

func TestNewPlanCache_DefaultCapacity(t *testing.T) {
	c := NewPlanCache(0)
	assert.Equal(t, DefaultPlanCacheSize, c.capacity)
}
