package meshdoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cube = `{
	"comments": ["unit corner"],
	"vertex": {"x": [0, 1], "y": [0, 1], "z": [0, 1]},
	"face": {"vertex_indices": [[0, 1, 2]]}
}`

func TestDecode_Cube(t *testing.T) {
	m, err := Decode(strings.NewReader(cube))
	require.NoError(t, err)

	assert.Equal(t, []string{"unit corner"}, m.Comments)
	assert.Equal(t, []string{"x", "y", "z"}, m.Vertex.Names())
	assert.Equal(t, []string{"vertex_indices"}, m.Face.Names())

	var buf bytes.Buffer
	_, err = ply.Write(&buf, m)
	require.NoError(t, err)
	assert.Equal(t, "ply\n"+
		"format ascii 1.0\n"+
		"comment unit corner\n"+
		"element vertex 2\n"+
		"property int x\n"+
		"property int y\n"+
		"property int z\n"+
		"element face 1\n"+
		"property list uchar int vertex_indices\n"+
		"end_header\n"+
		"0 0 0\n"+
		"1 1 1\n"+
		"3 0 1 2\n", buf.String())
}

func TestDecode_KeepsKeyOrder(t *testing.T) {
	m, err := DecodeBytes([]byte(`{"vertex": {"z": [1], "nx": [0.5], "a": [2], "x": [3]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "nx", "a", "x"}, m.Vertex.Names())
	assert.Zero(t, m.Face.NumProperties())
}

func TestDecode_ExactNumbers(t *testing.T) {
	m, err := DecodeBytes([]byte(`{"vertex": {"big": [4294967295], "small": [1, 2.0], "frac": [1, 0.1]}}`))
	require.NoError(t, err)

	s, err := ply.NewStream(m)
	require.NoError(t, err)
	types := s.VertexTypes()
	require.Len(t, types, 3)
	assert.Equal(t, "double", types[0].String(), "beyond 32 bits")
	assert.Equal(t, "int", types[1].String(), "2.0 is integral")
	assert.Equal(t, "double", types[2].String())

	col, _ := m.Vertex.Column("frac")
	assert.Equal(t, 0.1, col.Float(1))
}

func TestDecode_DeclaredTypes(t *testing.T) {
	doc := `{
		"vertex": {"x": [0, 1], "red": [255, 0]},
		"face": {"vertex_indices": [[0, 1, 2]]},
		"types": {
			"vertex": {"x": "float32", "red": "uchar"},
			"face": {"vertex_indices": "list uchar uint"}
		},
		"obj_info": ["units: mm"]
	}`
	m, err := DecodeBytes([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"units: mm"}, m.ObjInfo)

	s, err := ply.NewStream(m, ply.WithFormat(ply.FormatBinaryLittleEndian))
	require.NoError(t, err)
	assert.Contains(t, s.Header(), "property float x\nproperty uchar red\n")
	assert.Contains(t, s.Header(), "property list uchar uint vertex_indices\n")
	assert.Equal(t, []string{"x", "red"}, m.Vertex.Names(), "declaring keeps order")
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"not an object":      `[1, 2]`,
		"unknown key":        `{"edges": {}}`,
		"object value":       `{"vertex": {"x": {"a": 1}}}`,
		"string values":      `{"vertex": {"x": ["a"]}}`,
		"scalar property":    `{"vertex": {"x": 1}}`,
		"null inside":        `{"vertex": {"x": [1, null]}}`,
		"duplicate property": `{"vertex": {"x": [1], "x": [2]}}`,
		"comment number":     `{"comments": [1]}`,
		"unknown element":    `{"types": {"edge": {"a": "int"}}}`,
		"unknown property":   `{"vertex": {"x": [1]}, "types": {"vertex": {"y": "int"}}}`,
		"bad type":           `{"vertex": {"x": [1]}, "types": {"vertex": {"x": "vec3"}}}`,
		"type not string":    `{"vertex": {"x": [1]}, "types": {"vertex": {"x": 4}}}`,
		"truncated":          `{"vertex": {"x": [1, 2`,
		"trailing data":      `{"vertex": {"x": [1]}} garbage`,
		"second document":    `{} {}`,
		"trailing bracket":   `{"vertex": {"x": [1]}}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestDecode_TrailingWhitespace(t *testing.T) {
	m, err := DecodeBytes([]byte("{\"vertex\": {\"x\": [1]}}\n\t \n"))
	require.NoError(t, err)
	n, err := m.Vertex.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecode_MismatchSurfacesAtStream(t *testing.T) {
	m, err := DecodeBytes([]byte(`{"vertex": {"x": [1, 2], "y": [1]}}`))
	require.NoError(t, err)

	_, err = ply.NewStream(m)
	assert.ErrorIs(t, err, ply.ErrMismatchedLength)
}
