package ply

import (
	"fmt"
	"reflect"
)

// Number is the set of Go types with a direct PLY scalar equivalent
type Number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Column is the backing data of one property. Record i of a scalar column is
// read with Float, record i of a list column with Sub. Columns are read in
// index order and never modified.
type Column interface {
	// Len returns the number of records
	Len() int

	// Type resolves the PLY type of the column
	Type() (Type, error)

	// Float returns scalar record i
	Float(i int) float64

	// Sub returns list record i
	Sub(i int) Column
}

// Values is a statically typed scalar column
type Values[T Number] []T

func (v Values[T]) Len() int            { return len(v) }
func (v Values[T]) Type() (Type, error) { return Scalar(kindOf[T]()), nil }
func (v Values[T]) Float(i int) float64 { return float64(v[i]) }
func (v Values[T]) Sub(int) Column      { return nil }

// Lists is a statically typed list column. The count type is chosen from the
// longest list.
type Lists[T Number] [][]T

func (l Lists[T]) Len() int { return len(l) }

func (l Lists[T]) Type() (Type, error) {
	maxLen := 0
	for _, sub := range l {
		maxLen = max(maxLen, len(sub))
	}
	return ListOf(countKind(maxLen), Scalar(kindOf[T]())), nil
}

func (l Lists[T]) Float(int) float64 { return 0 }
func (l Lists[T]) Sub(i int) Column  { return Values[T](l[i]) }

func kindOf[T Number]() Kind {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Int8:
		return Char
	case reflect.Uint8:
		return UChar
	case reflect.Int16:
		return Short
	case reflect.Uint16:
		return UShort
	case reflect.Int32:
		return Int
	case reflect.Uint32:
		return UInt
	case reflect.Float32:
		return Float
	default:
		return Double
	}
}

// Declare returns a column that reports the declared type t instead of an
// inferred one. The list depth of t must match the data, and every list must
// fit its declared count type.
func Declare(t Type, c Column) Column {
	return &declared{typ: t, col: c}
}

type declared struct {
	typ Type
	col Column
}

func (d *declared) Len() int            { return d.col.Len() }
func (d *declared) Float(i int) float64 { return d.col.Float(i) }
func (d *declared) Sub(i int) Column    { return d.col.Sub(i) }

func (d *declared) Type() (Type, error) {
	inferred, err := d.col.Type()
	if err != nil {
		return Type{}, err
	}
	if inferred.Depth() != d.typ.Depth() {
		return Type{}, fmt.Errorf("%w: declared %s for %s data", ErrUnsupportedType, d.typ, inferred)
	}
	if d.typ.Leaf() == Invalid {
		return Type{}, fmt.Errorf("%w: declared type has no scalar kind", ErrUnsupportedType)
	}
	if d.typ.IsList() {
		if err := checkCounts(d.typ, d.col); err != nil {
			return Type{}, err
		}
	}
	return d.typ, nil
}

// checkCounts verifies that every list at every level of c fits the count
// types of t
func checkCounts(t Type, c Column) error {
	limit := maxCount(t.Count)
	for i := 0; i < c.Len(); i++ {
		sub := c.Sub(i)
		if sub == nil {
			continue
		}
		if uint64(sub.Len()) > limit {
			return fmt.Errorf("%w: record %d has %d items, %s holds at most %d",
				ErrCountOverflow, i, sub.Len(), t.Count, limit)
		}
		if t.Elem.IsList() {
			if err := checkCounts(*t.Elem, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resolve infers the PLY type of a property's values. It accepts anything
// Sniff accepts.
func Resolve(v any) (Type, error) {
	c, err := Sniff(v)
	if err != nil {
		return Type{}, err
	}
	return c.Type()
}
