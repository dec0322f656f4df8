package ply

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
)

type state uint8

const (
	stateHeader state = iota
	stateVertex
	stateFace
	stateDone
	stateFailed
)

// element is one element's columns and plan plus the emission cursor
type element struct {
	name  string
	names []string
	types []Type
	cols  []Column
	plan  *Plan
	count int
	next  int
}

func (e *element) header() ElementHeader {
	props := make([]PropertyHeader, len(e.names))
	for i, name := range e.names {
		props[i] = PropertyHeader{Name: name, Type: e.types[i]}
	}
	return ElementHeader{Name: e.name, Count: e.count, Properties: props}
}

// Stream produces a PLY file one chunk at a time: the header, then one chunk
// per vertex, then one per face. A Stream is not safe for concurrent use and
// cannot be restarted.
type Stream struct {
	format Format
	header string
	vertex element
	face   element
	state  state
	err    error

	// pending holds the unread rest of the current chunk for Read
	pending []byte

	logger *slog.Logger
}

// NewStream resolves the property types of m, renders the header and
// compiles the record plans. Nothing is encoded until the first pull. Type
// and length errors are returned here, before any output exists.
func NewStream(m *Mesh, opts ...Option) (*Stream, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if m == nil {
		m = &Mesh{}
	}

	s := &Stream{
		format: o.format,
		logger: o.logger,
	}
	var err error
	if s.vertex, err = prepare("vertex", m.Vertex, o); err != nil {
		return nil, err
	}
	if s.face, err = prepare("face", m.Face, o); err != nil {
		return nil, err
	}
	s.header = BuildHeader(o.format, m.Comments, m.ObjInfo, []ElementHeader{s.vertex.header(), s.face.header()})
	return s, nil
}

func prepare(name string, g *Group, o options) (element, error) {
	count, err := g.Len()
	if err != nil {
		return element{}, fmt.Errorf("element %s: %w", name, err)
	}
	e := element{
		name:  name,
		names: g.Names(),
		cols:  g.Columns(),
		count: count,
	}
	e.types = make([]Type, len(e.cols))
	for i, c := range e.cols {
		if e.types[i], err = c.Type(); err != nil {
			return element{}, fmt.Errorf("element %s property %s: %w", name, e.names[i], err)
		}
	}

	plan, cached := o.cache.lookup(o.format, e.types)
	if !cached {
		o.logger.Debug("compiled plan",
			"element", name,
			"signature", plan.Signature(),
		)
	}
	e.plan = plan
	return e, nil
}

// Next returns the next chunk. After the last face it returns io.EOF on
// every call. An encoding error is returned once and then on every call.
func (s *Stream) Next() ([]byte, error) {
	switch s.state {
	case stateHeader:
		s.state = stateVertex
		s.skipEmpty()
		return []byte(s.header), nil

	case stateVertex:
		return s.emit(&s.vertex, stateFace)

	case stateFace:
		return s.emit(&s.face, stateDone)

	case stateDone:
		return nil, io.EOF

	default:
		return nil, s.err
	}
}

func (s *Stream) emit(e *element, after state) ([]byte, error) {
	b, err := e.plan.Encode(e.cols, e.next)
	if err != nil {
		s.state = stateFailed
		s.err = fmt.Errorf("%s %d: %w", e.name, e.next, err)
		s.logger.Error("stream failed", "element", e.name, "record", e.next, "error", err)
		return nil, s.err
	}
	e.next++
	if e.next >= e.count {
		s.state = after
		s.skipEmpty()
	}
	return b, nil
}

// skipEmpty moves past elements without records so that the next pull
// never lands on an empty element
func (s *Stream) skipEmpty() {
	if s.state == stateVertex && s.vertex.count == 0 {
		s.state = stateFace
	}
	if s.state == stateFace && s.face.count == 0 {
		s.state = stateDone
	}
	if s.state == stateDone {
		s.logger.Debug("stream complete",
			"vertices", s.vertex.count,
			"faces", s.face.count,
		)
	}
}

// All returns the remaining chunks as an iterator. Iteration ends after the
// last chunk or after yielding an error.
func (s *Stream) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			b, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

// Read implements io.Reader over the chunk sequence
func (s *Stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			b, err := s.Next()
			if err != nil {
				if n > 0 && err == io.EOF {
					return n, nil
				}
				return n, err
			}
			s.pending = b
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

// WriteTo implements io.WriterTo, writing every remaining chunk to w
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	return s.WriteContext(context.Background(), w)
}

// WriteContext writes every remaining chunk to w, checking ctx between chunks
func (s *Stream) WriteContext(ctx context.Context, w io.Writer) (int64, error) {
	var total int64
	if len(s.pending) > 0 {
		n, err := w.Write(s.pending)
		total += int64(n)
		s.pending = nil
		if err != nil {
			return total, err
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		b, err := s.Next()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// Header returns the rendered header text
func (s *Stream) Header() string { return s.header }

// Format returns the output format
func (s *Stream) Format() Format { return s.format }

// VertexCount returns the number of vertex records
func (s *Stream) VertexCount() int { return s.vertex.count }

// FaceCount returns the number of face records
func (s *Stream) FaceCount() int { return s.face.count }

// VertexTypes returns the resolved vertex property types in order
func (s *Stream) VertexTypes() []Type { return append([]Type(nil), s.vertex.types...) }

// FaceTypes returns the resolved face property types in order
func (s *Stream) FaceTypes() []Type { return append([]Type(nil), s.face.types...) }

// Write streams m to w as PLY and returns the number of bytes written
func Write(w io.Writer, m *Mesh, opts ...Option) (int64, error) {
	s, err := NewStream(m, opts...)
	if err != nil {
		return 0, err
	}
	return s.WriteTo(w)
}
