// Package ply writes column-oriented mesh data as PLY (Polygon File Format)
// in ASCII or binary encoding, one chunk at a time.
package ply

import (
	"fmt"
	"strings"
)

// Kind is one of the fixed PLY scalar types
type Kind uint8

const (
	Invalid Kind = iota
	Char
	UChar
	Short
	UShort
	Int
	UInt
	Float
	Double
)

var kindNames = [...]string{
	Invalid: "invalid",
	Char:    "char",
	UChar:   "uchar",
	Short:   "short",
	UShort:  "ushort",
	Int:     "int",
	UInt:    "uint",
	Float:   "float",
	Double:  "double",
}

var kindSizes = [...]int{
	Char:   1,
	UChar:  1,
	Short:  2,
	UShort: 2,
	Int:    4,
	UInt:   4,
	Float:  4,
	Double: 8,
}

// String returns the PLY token for the kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Size returns the encoded width of the kind in bytes
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

// IsInteger reports whether the kind holds integers
func (k Kind) IsInteger() bool {
	return k >= Char && k <= UInt
}

// ParseKind parses a PLY scalar token. The sized aliases used by some
// writers (int8, uint8, ..., float64) are accepted as well.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "char", "int8":
		return Char, nil
	case "uchar", "uint8":
		return UChar, nil
	case "short", "int16":
		return Short, nil
	case "ushort", "uint16":
		return UShort, nil
	case "int", "int32":
		return Int, nil
	case "uint", "uint32":
		return UInt, nil
	case "float", "float32":
		return Float, nil
	case "double", "float64":
		return Double, nil
	default:
		return Invalid, fmt.Errorf("%w: scalar type %q", ErrUnknownFormat, s)
	}
}

// Type is a resolved property type: either a scalar kind or a list whose
// elements are themselves a Type.
type Type struct {
	// Kind is set for scalars and Invalid for lists
	Kind Kind

	// Count is the kind of the length prefix of a list
	Count Kind

	// Elem is the element type of a list
	Elem *Type
}

// Scalar returns a scalar type of the given kind
func Scalar(k Kind) Type {
	return Type{Kind: k}
}

// ListOf returns a list type with the given count kind and element type
func ListOf(count Kind, elem Type) Type {
	return Type{Count: count, Elem: &elem}
}

// IsList reports whether t is a list type
func (t Type) IsList() bool {
	return t.Elem != nil
}

// Depth returns the number of list levels above the innermost scalar
func (t Type) Depth() int {
	d := 0
	for t.Elem != nil {
		d++
		t = *t.Elem
	}
	return d
}

// Leaf returns the innermost scalar kind
func (t Type) Leaf() Kind {
	for t.Elem != nil {
		t = *t.Elem
	}
	return t.Kind
}

// Equal reports whether two types have the same structure
func (t Type) Equal(o Type) bool {
	return t.String() == o.String()
}

// String renders the type in PLY header grammar, e.g. "list uchar int"
func (t Type) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t Type) writeTo(b *strings.Builder) {
	for t.Elem != nil {
		b.WriteString("list ")
		b.WriteString(t.Count.String())
		b.WriteByte(' ')
		t = *t.Elem
	}
	b.WriteString(t.Kind.String())
}

// ParseType parses a type in PLY header grammar
func ParseType(s string) (Type, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Type{}, fmt.Errorf("%w: empty type", ErrUnknownFormat)
	}
	t, rest, err := parseTypeFields(fields)
	if err != nil {
		return Type{}, err
	}
	if len(rest) != 0 {
		return Type{}, fmt.Errorf("%w: trailing tokens in type %q", ErrUnknownFormat, s)
	}
	return t, nil
}

func parseTypeFields(fields []string) (Type, []string, error) {
	if len(fields) == 0 {
		return Type{}, nil, fmt.Errorf("%w: truncated list type", ErrUnknownFormat)
	}
	if fields[0] != "list" {
		k, err := ParseKind(fields[0])
		if err != nil {
			return Type{}, nil, err
		}
		return Scalar(k), fields[1:], nil
	}
	if len(fields) < 3 {
		return Type{}, nil, fmt.Errorf("%w: truncated list type", ErrUnknownFormat)
	}
	count, err := ParseKind(fields[1])
	if err != nil {
		return Type{}, nil, err
	}
	if !count.IsInteger() {
		return Type{}, nil, fmt.Errorf("%w: list count type %s is not an integer", ErrUnknownFormat, count)
	}
	elem, rest, err := parseTypeFields(fields[2:])
	if err != nil {
		return Type{}, nil, err
	}
	return ListOf(count, elem), rest, nil
}

// countKind picks the narrowest unsigned count type able to hold maxLen
func countKind(maxLen int) Kind {
	switch {
	case maxLen < 1<<8:
		return UChar
	case maxLen < 1<<16:
		return UShort
	default:
		return UInt
	}
}

// join returns the narrowest scalar able to represent both a and b. Equal
// kinds are kept, anything else widens to double.
func join(a, b Type) (Type, error) {
	if a.IsList() || b.IsList() {
		return Type{}, fmt.Errorf("%w: mixed scalar and list values", ErrUnsupportedType)
	}
	if a.Kind == b.Kind {
		return a, nil
	}
	return Scalar(Double), nil
}

// maxCount returns the largest length representable by an integer count kind
func maxCount(k Kind) uint64 {
	switch k {
	case Char:
		return 1<<7 - 1
	case UChar:
		return 1<<8 - 1
	case Short:
		return 1<<15 - 1
	case UShort:
		return 1<<16 - 1
	case Int:
		return 1<<31 - 1
	default:
		return 1<<32 - 1
	}
}
