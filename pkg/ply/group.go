package ply

import (
	"fmt"

	"cogentcore.org/core/base/ordmap"
)

// Group is an element's properties in declaration order. The order is the
// order of the header's property lines and of every record's fields.
type Group struct {
	props *ordmap.Map[string, Column]
}

// NewGroup returns an empty group
func NewGroup() *Group {
	return &Group{props: ordmap.New[string, Column]()}
}

// Add appends a property. Adding an existing name replaces its column and
// keeps its position.
func (g *Group) Add(name string, c Column) *Group {
	if g.props == nil {
		g.props = ordmap.New[string, Column]()
	}
	g.props.Add(name, c)
	return g
}

// Set sniffs v and adds it as a property
func (g *Group) Set(name string, v any) error {
	c, err := Sniff(v)
	if err != nil {
		return fmt.Errorf("property %s: %w", name, err)
	}
	g.Add(name, c)
	return nil
}

// Column returns the named property
func (g *Group) Column(name string) (Column, bool) {
	if g.NumProperties() == 0 {
		return nil, false
	}
	return g.props.ValueByKeyTry(name)
}

// NumProperties returns the number of properties
func (g *Group) NumProperties() int {
	if g == nil {
		return 0
	}
	return g.props.Len()
}

// Names returns the property names in order
func (g *Group) Names() []string {
	if g.NumProperties() == 0 {
		return nil
	}
	names := make([]string, 0, g.props.Len())
	for _, kv := range g.props.Order {
		names = append(names, kv.Key)
	}
	return names
}

// Columns returns the property columns in order
func (g *Group) Columns() []Column {
	if g.NumProperties() == 0 {
		return nil
	}
	cols := make([]Column, 0, g.props.Len())
	for _, kv := range g.props.Order {
		cols = append(cols, kv.Value)
	}
	return cols
}

// Len returns the record count shared by all properties. An empty group has
// no records.
func (g *Group) Len() (int, error) {
	if g.NumProperties() == 0 {
		return 0, nil
	}
	first := g.props.Order[0]
	n := first.Value.Len()
	for _, kv := range g.props.Order[1:] {
		if kv.Value.Len() != n {
			return 0, fmt.Errorf("%w: %s has %d records, %s has %d",
				ErrMismatchedLength, first.Key, n, kv.Key, kv.Value.Len())
		}
	}
	return n, nil
}

// Mesh is the input of a PLY write: a vertex element, a face element and the
// header's free text lines.
type Mesh struct {
	Vertex *Group
	Face   *Group

	// Comments become "comment" header lines
	Comments []string

	// ObjInfo become "obj_info" header lines
	ObjInfo []string
}
