package ply

import (
	"fmt"
	"math"
	"reflect"
)

// floater is implemented by json.Number style values
type floater interface {
	Float64() (float64, error)
}

// Sniff builds a column from untyped data by inspecting its contents.
//
// Slices of fixed-width Go numbers ([]int8 ... []uint32, []float32 and lists
// of them) keep their declared kind. Everything else that is a sequence of
// numbers ([]int, []float64, []any, json numbers) resolves to int when every
// value is an integer within 32 bits and to double otherwise. Sequences of
// sequences become lists whose element type is widened across all records and
// whose count type fits the longest record.
func Sniff(v any) (Column, error) {
	if c, ok := typedColumn(v); ok {
		return c, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	c, err := sniffSeq(rv)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// typedColumn wraps values whose Go type already fixes the PLY kind
func typedColumn(v any) (Column, bool) {
	switch t := v.(type) {
	case Column:
		return t, true
	case []int8:
		return Values[int8](t), true
	case []uint8:
		return Values[uint8](t), true
	case []int16:
		return Values[int16](t), true
	case []uint16:
		return Values[uint16](t), true
	case []int32:
		return Values[int32](t), true
	case []uint32:
		return Values[uint32](t), true
	case []float32:
		return Values[float32](t), true
	case [][]int8:
		return Lists[int8](t), true
	case [][]uint8:
		return Lists[uint8](t), true
	case [][]int16:
		return Lists[int16](t), true
	case [][]uint16:
		return Lists[uint16](t), true
	case [][]int32:
		return Lists[int32](t), true
	case [][]uint32:
		return Lists[uint32](t), true
	case [][]float32:
		return Lists[float32](t), true
	}
	return nil, false
}

// sniffed is a column built by Sniff. typ may contain Invalid leaves for
// lists that were empty everywhere; Type replaces them with int.
type sniffed struct {
	vals []float64
	subs []Column
	typ  Type
}

func (s *sniffed) Len() int {
	if s.typ.IsList() {
		return len(s.subs)
	}
	return len(s.vals)
}

func (s *sniffed) Type() (Type, error) { return settle(s.typ), nil }
func (s *sniffed) Float(i int) float64 { return s.vals[i] }
func (s *sniffed) Sub(i int) Column    { return s.subs[i] }

// settle replaces undetermined scalar kinds with int
func settle(t Type) Type {
	if t.IsList() {
		return ListOf(t.Count, settle(*t.Elem))
	}
	if t.Kind == Invalid {
		return Scalar(Int)
	}
	return t
}

func sniffSeq(rv reflect.Value) (*sniffed, error) {
	n := rv.Len()
	if n == 0 {
		return &sniffed{typ: Scalar(Invalid)}, nil
	}

	first, err := classify(rv.Index(0))
	if err != nil {
		return nil, err
	}
	if first.Kind() == reflect.Slice || first.Kind() == reflect.Array {
		return sniffLists(rv)
	}

	vals := make([]float64, n)
	kind := Int
	for i := 0; i < n; i++ {
		ev, err := classify(rv.Index(i))
		if err != nil {
			return nil, err
		}
		f, ok := number(ev)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s in a sequence of numbers", ErrUnsupportedType, i, ev.Kind())
		}
		vals[i] = f
		if kind == Int && !isInt32(f) {
			kind = Double
		}
	}
	return &sniffed{vals: vals, typ: Scalar(kind)}, nil
}

func sniffLists(rv reflect.Value) (*sniffed, error) {
	n := rv.Len()
	subs := make([]Column, n)
	elem := Scalar(Invalid)
	maxLen := 0
	for i := 0; i < n; i++ {
		ev, err := classify(rv.Index(i))
		if err != nil {
			return nil, err
		}
		if ev.Kind() != reflect.Slice && ev.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: element %d is %s in a sequence of lists", ErrUnsupportedType, i, ev.Kind())
		}
		sub, typ, err := sniffRecord(ev)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		subs[i] = sub
		maxLen = max(maxLen, sub.Len())
		if sub.Len() == 0 {
			continue
		}
		if elem, err = widen(elem, typ); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return &sniffed{subs: subs, typ: ListOf(countKind(maxLen), elem)}, nil
}

// sniffRecord builds one list record, keeping the kind of fixed-width slices
// nested at any depth. The returned type may hold Invalid leaves.
func sniffRecord(ev reflect.Value) (Column, Type, error) {
	if ev.CanInterface() {
		if c, ok := typedColumn(ev.Interface()); ok {
			typ, err := c.Type()
			return c, typ, err
		}
	}
	sub, err := sniffSeq(ev)
	if err != nil {
		return nil, Type{}, err
	}
	return sub, sub.typ, nil
}

// widen joins two sniffed types, treating Invalid scalars as unknown
func widen(a, b Type) (Type, error) {
	if !a.IsList() && a.Kind == Invalid {
		return b, nil
	}
	if !b.IsList() && b.Kind == Invalid {
		return a, nil
	}
	if a.IsList() && b.IsList() {
		elem, err := widen(*a.Elem, *b.Elem)
		if err != nil {
			return Type{}, err
		}
		count := a.Count
		if b.Count.Size() > count.Size() {
			count = b.Count
		}
		return ListOf(count, elem), nil
	}
	return join(a, b)
}

// classify unwraps interfaces and pointers
func classify(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, fmt.Errorf("%w: nil value", ErrUnsupportedType)
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v, fmt.Errorf("%w: invalid value", ErrUnsupportedType)
	}
	return v, nil
}

// number converts a scalar reflect value to float64
func number(v reflect.Value) (float64, bool) {
	if v.CanInterface() {
		if f, ok := v.Interface().(floater); ok {
			x, err := f.Float64()
			return x, err == nil
		}
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

func isInt32(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32
}
