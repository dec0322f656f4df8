package ply

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Plan encodes records of one type signature in one format. Plans hold no
// mutable state and may be shared between streams and goroutines.
type Plan struct {
	format Format
	types  []Type
	order  binary.ByteOrder

	// hasList is false when every property is a scalar, in which case each
	// record is exactly fixed bytes long and offsets locate every property.
	hasList bool
	fixed   int
	offsets []int
}

// Compile builds the plan for records whose properties have the given types
func Compile(f Format, types []Type) *Plan {
	p := &Plan{
		format:  f,
		types:   slices.Clone(types),
		order:   f.ByteOrder(),
		offsets: make([]int, len(types)),
	}
	for i, t := range types {
		if t.IsList() {
			p.hasList = true
			p.offsets[i] = -1
			continue
		}
		p.offsets[i] = p.fixed
		p.fixed += t.Kind.Size()
	}
	return p
}

// Format returns the plan's output format
func (p *Plan) Format() Format { return p.format }

// Types returns the property types the plan encodes
func (p *Plan) Types() []Type { return slices.Clone(p.types) }

// FixedSize returns the size of every binary record when the signature has
// no lists
func (p *Plan) FixedSize() (int, bool) {
	if p.hasList || !p.format.IsBinary() {
		return 0, false
	}
	return p.fixed, true
}

// Signature returns the cache key text of the plan
func (p *Plan) Signature() string {
	return signature(p.format, p.types)
}

func signature(f Format, types []Type) string {
	var b strings.Builder
	b.WriteString(f.String())
	b.WriteByte('&')
	for i, t := range types {
		if i > 0 {
			b.WriteByte(',')
		}
		t.writeTo(&b)
	}
	return b.String()
}

// Encode returns record i of cols. cols must line up with the plan's types.
func (p *Plan) Encode(cols []Column, i int) ([]byte, error) {
	return p.AppendRecord(nil, cols, i)
}

// AppendRecord appends record i of cols to dst
func (p *Plan) AppendRecord(dst []byte, cols []Column, i int) ([]byte, error) {
	if len(cols) != len(p.types) {
		return dst, fmt.Errorf("plan has %d properties, got %d columns", len(p.types), len(cols))
	}
	if p.format.IsBinary() {
		return p.appendBinary(dst, cols, i)
	}
	return p.appendASCII(dst, cols, i)
}

func (p *Plan) appendASCII(dst []byte, cols []Column, i int) ([]byte, error) {
	var err error
	for k, t := range p.types {
		if k > 0 {
			dst = append(dst, ' ')
		}
		if t.IsList() {
			if dst, err = appendListText(dst, t, cols[k].Sub(i)); err != nil {
				return dst, err
			}
			continue
		}
		dst = appendScalarText(dst, t.Kind, cols[k].Float(i))
	}
	return append(dst, '\n'), nil
}

// appendListText writes the count followed by the elements, descending into
// nested lists depth first
func appendListText(dst []byte, t Type, c Column) ([]byte, error) {
	n := columnLen(c)
	if uint64(n) > maxCount(t.Count) {
		return dst, fmt.Errorf("%w: %d items in %s", ErrCountOverflow, n, t)
	}
	dst = strconv.AppendInt(dst, int64(n), 10)
	var err error
	for j := 0; j < n; j++ {
		dst = append(dst, ' ')
		if t.Elem.IsList() {
			if dst, err = appendListText(dst, *t.Elem, c.Sub(j)); err != nil {
				return dst, err
			}
			continue
		}
		dst = appendScalarText(dst, t.Elem.Kind, c.Float(j))
	}
	return dst, nil
}

func appendScalarText(dst []byte, k Kind, v float64) []byte {
	switch k {
	case Float:
		return strconv.AppendFloat(dst, float64(float32(v)), 'g', -1, 32)
	case Double:
		return strconv.AppendFloat(dst, v, 'g', -1, 64)
	default:
		return strconv.AppendInt(dst, narrow(k, v), 10)
	}
}

func (p *Plan) appendBinary(dst []byte, cols []Column, i int) ([]byte, error) {
	if !p.hasList {
		buf, base := grow(dst, p.fixed)
		for k, t := range p.types {
			putScalar(buf[base+p.offsets[k]:], p.order, t.Kind, cols[k].Float(i))
		}
		return buf, nil
	}

	// First pass: exact size of this record
	n := p.fixed
	for k, t := range p.types {
		if !t.IsList() {
			continue
		}
		size, err := listSize(t, cols[k].Sub(i))
		if err != nil {
			return dst, err
		}
		n += size
	}

	// Second pass: fill the buffer in declaration order
	buf, pos := grow(dst, n)
	for k, t := range p.types {
		if t.IsList() {
			pos = putList(buf, pos, p.order, t, cols[k].Sub(i))
			continue
		}
		putScalar(buf[pos:], p.order, t.Kind, cols[k].Float(i))
		pos += t.Kind.Size()
	}
	return buf, nil
}

// listSize returns the encoded size of one list value including its count
func listSize(t Type, c Column) (int, error) {
	n := columnLen(c)
	if uint64(n) > maxCount(t.Count) {
		return 0, fmt.Errorf("%w: %d items in %s", ErrCountOverflow, n, t)
	}
	size := t.Count.Size()
	if !t.Elem.IsList() {
		return size + n*t.Elem.Kind.Size(), nil
	}
	for j := 0; j < n; j++ {
		sub, err := listSize(*t.Elem, c.Sub(j))
		if err != nil {
			return 0, err
		}
		size += sub
	}
	return size, nil
}

// putList writes a list at pos and returns the position after it. Sizes were
// validated by listSize.
func putList(buf []byte, pos int, order binary.ByteOrder, t Type, c Column) int {
	n := columnLen(c)
	putScalar(buf[pos:], order, t.Count, float64(n))
	pos += t.Count.Size()
	for j := 0; j < n; j++ {
		if t.Elem.IsList() {
			pos = putList(buf, pos, order, *t.Elem, c.Sub(j))
			continue
		}
		putScalar(buf[pos:], order, t.Elem.Kind, c.Float(j))
		pos += t.Elem.Kind.Size()
	}
	return pos
}

func putScalar(b []byte, order binary.ByteOrder, k Kind, v float64) {
	switch k {
	case Char, UChar:
		b[0] = byte(narrow(k, v))
	case Short, UShort:
		order.PutUint16(b, uint16(narrow(k, v)))
	case Int, UInt:
		order.PutUint32(b, uint32(narrow(k, v)))
	case Float:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case Double:
		order.PutUint64(b, math.Float64bits(v))
	}
}

// narrow truncates v toward zero and wraps it into the range of k
func narrow(k Kind, v float64) int64 {
	x := int64(v)
	switch k {
	case Char:
		return int64(int8(x))
	case UChar:
		return int64(uint8(x))
	case Short:
		return int64(int16(x))
	case UShort:
		return int64(uint16(x))
	case Int:
		return int64(int32(x))
	case UInt:
		return int64(uint32(x))
	default:
		return x
	}
}

// grow extends dst by exactly n bytes and returns the offset of the new space
func grow(dst []byte, n int) ([]byte, int) {
	if dst == nil {
		return make([]byte, n), 0
	}
	base := len(dst)
	dst = slices.Grow(dst, n)
	return dst[:base+n], base
}

func columnLen(c Column) int {
	if c == nil {
		return 0
	}
	return c.Len()
}
