// Package meshdoc reads mesh documents: JSON objects holding a vertex and a
// face element as property-name to value-array maps, plus header text and
// optional declared property types.
//
//	{"comments": ["scan 4"],
//	 "types": {"vertex": {"x": "float"}},
//	 "vertex": {"x": [0, 1], "y": [0, 1], "z": [0, 1]},
//	 "face": {"vertex_indices": [[0, 1, 2]]}}
//
// Property order in the output follows key order in the document.
package meshdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/goccy/go-json"
)

var ErrInvalidDocument = errors.New("invalid mesh document")

// Decode reads one mesh document from r. Anything after it is an error.
func Decode(r io.Reader) (*ply.Mesh, error) {
	d := &decoder{dec: json.NewDecoder(r)}
	d.dec.UseNumber()

	m, err := d.document()
	if err == nil {
		err = d.end()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return m, nil
}

// end requires that nothing but whitespace follows the document
func (d *decoder) end() error {
	tok, err := d.dec.Token()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected %v after document", tok)
}

// DecodeBytes decodes a document held in memory
func DecodeBytes(data []byte) (*ply.Mesh, error) {
	return Decode(bytes.NewReader(data))
}

type decoder struct {
	dec *json.Decoder
}

func (d *decoder) document() (*ply.Mesh, error) {
	if err := d.expect('{'); err != nil {
		return nil, err
	}

	m := &ply.Mesh{Vertex: ply.NewGroup(), Face: ply.NewGroup()}
	declared := map[string]map[string]string{}
	for {
		key, done, err := d.key()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		switch key {
		case "comments":
			m.Comments, err = d.strings(key)
		case "obj_info":
			m.ObjInfo, err = d.strings(key)
		case "vertex":
			err = d.group(key, m.Vertex)
		case "face":
			err = d.group(key, m.Face)
		case "types":
			err = d.types(declared)
		default:
			err = fmt.Errorf("unknown key %q", key)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := applyTypes(m, declared); err != nil {
		return nil, err
	}
	return m, nil
}

// key reads an object key, reporting done at the closing brace
func (d *decoder) key() (string, bool, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", false, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '}' {
			return "", true, nil
		}
	case string:
		return t, false, nil
	}
	return "", false, fmt.Errorf("expected object key, got %v", tok)
}

func (d *decoder) expect(delim json.Delim) error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != delim {
		return fmt.Errorf("expected %q, got %v", delim, tok)
	}
	return nil
}

func (d *decoder) strings(key string) ([]string, error) {
	if err := d.expect('['); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	var out []string
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case json.Delim:
			if t == ']' {
				return out, nil
			}
		case string:
			out = append(out, t)
			continue
		}
		return nil, fmt.Errorf("%s: expected string, got %v", key, tok)
	}
}

func (d *decoder) group(element string, g *ply.Group) error {
	if err := d.expect('{'); err != nil {
		return fmt.Errorf("%s: %w", element, err)
	}
	for {
		name, done, err := d.key()
		if err != nil {
			return fmt.Errorf("%s: %w", element, err)
		}
		if done {
			return nil
		}
		if _, dup := g.Column(name); dup {
			return fmt.Errorf("%s: duplicate property %q", element, name)
		}
		v, err := d.value()
		if err != nil {
			return fmt.Errorf("%s.%s: %w", element, name, err)
		}
		if err := g.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", element, err)
		}
	}
}

func (d *decoder) types(declared map[string]map[string]string) error {
	if err := d.expect('{'); err != nil {
		return fmt.Errorf("types: %w", err)
	}
	for {
		element, done, err := d.key()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := d.expect('{'); err != nil {
			return fmt.Errorf("types.%s: %w", element, err)
		}
		props := map[string]string{}
		for {
			name, done, err := d.key()
			if err != nil {
				return err
			}
			if done {
				break
			}
			tok, err := d.dec.Token()
			if err != nil {
				return err
			}
			s, ok := tok.(string)
			if !ok {
				return fmt.Errorf("types.%s.%s: expected type string, got %v", element, name, tok)
			}
			props[name] = s
		}
		declared[element] = props
	}
}

// value reads any JSON value, keeping numbers as json.Number
func (d *decoder) value() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, err
	}
	return d.rest(tok)
}

func (d *decoder) rest(tok any) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if delim != '[' {
		return nil, fmt.Errorf("unexpected %q in property value", delim)
	}
	items := []any{}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if end, ok := tok.(json.Delim); ok && end == ']' {
			return items, nil
		}
		v, err := d.rest(tok)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

func applyTypes(m *ply.Mesh, declared map[string]map[string]string) error {
	for element, props := range declared {
		var g *ply.Group
		switch element {
		case "vertex":
			g = m.Vertex
		case "face":
			g = m.Face
		default:
			return fmt.Errorf("types: unknown element %q", element)
		}
		for name, decl := range props {
			col, ok := g.Column(name)
			if !ok {
				return fmt.Errorf("types.%s: unknown property %q", element, name)
			}
			typ, err := ply.ParseType(decl)
			if err != nil {
				return fmt.Errorf("types.%s.%s: %w", element, name, err)
			}
			g.Add(name, ply.Declare(typ, col))
		}
	}
	return nil
}
