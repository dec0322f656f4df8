package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aleksaelezovic/plywrite/internal/meshdoc"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/goccy/go-json"
)

const maxNameLength = 255

var ErrInvalidName = errors.New("invalid mesh name")

// Info summarizes a stored mesh
type Info struct {
	Name             string    `json:"name"`
	Vertices         int       `json:"vertices"`
	Faces            int       `json:"faces"`
	VertexProperties []string  `json:"vertex_properties"`
	FaceProperties   []string  `json:"face_properties"`
	Size             int       `json:"size"`
	Updated          time.Time `json:"updated"`
}

// MeshStore keeps mesh documents by name
type MeshStore struct {
	storage Storage
	logger  *slog.Logger
}

// NewMeshStore wraps s. A nil logger discards.
func NewMeshStore(s Storage, logger *slog.Logger) *MeshStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MeshStore{storage: s, logger: logger}
}

// ValidateName rejects names that cannot appear in a URL path segment or
// a file name
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Put stores doc under name, replacing any previous document. The document
// must decode and its types must resolve.
func (s *MeshStore) Put(name string, doc []byte) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	m, err := meshdoc.DecodeBytes(doc)
	if err != nil {
		return Info{}, err
	}
	stream, err := ply.NewStream(m)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", meshdoc.ErrInvalidDocument, err)
	}

	info := Info{
		Name:             name,
		Vertices:         stream.VertexCount(),
		Faces:            stream.FaceCount(),
		VertexProperties: m.Vertex.Names(),
		FaceProperties:   m.Face.Names(),
		Size:             len(doc),
		Updated:          time.Now().UTC(),
	}
	encoded, err := json.Marshal(info)
	if err != nil {
		return Info{}, fmt.Errorf("failed to encode info: %w", err)
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return Info{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	key := []byte(name)
	if err := txn.Set(TableMeshes, key, doc); err != nil {
		return Info{}, fmt.Errorf("failed to store mesh: %w", err)
	}
	if err := txn.Set(TableInfo, key, encoded); err != nil {
		return Info{}, fmt.Errorf("failed to store info: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return Info{}, fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("stored mesh",
		"name", name,
		"vertices", info.Vertices,
		"faces", info.Faces,
		"bytes", info.Size,
	)
	return info, nil
}

// Get returns the stored document
func (s *MeshStore) Get(name string) ([]byte, error) {
	return s.read(TableMeshes, name)
}

// Mesh returns the stored document decoded
func (s *MeshStore) Mesh(name string) (*ply.Mesh, error) {
	doc, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	return meshdoc.DecodeBytes(doc)
}

// Info returns the summary recorded by Put
func (s *MeshStore) Info(name string) (Info, error) {
	data, err := s.read(TableInfo, name)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("failed to decode info for %s: %w", name, err)
	}
	return info, nil
}

func (s *MeshStore) read(table Table, name string) ([]byte, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	data, err := txn.Get(table, []byte(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("mesh %s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a mesh. Deleting a missing mesh returns ErrNotFound.
func (s *MeshStore) Delete(name string) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	key := []byte(name)
	if _, err := txn.Get(TableMeshes, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("mesh %s: %w", name, ErrNotFound)
		}
		return err
	}
	if err := txn.Delete(TableMeshes, key); err != nil {
		return err
	}
	if err := txn.Delete(TableInfo, key); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("deleted mesh", "name", name)
	return nil
}

// List returns the stored names in byte order
func (s *MeshStore) List() ([]string, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableInfo, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	names := []string{}
	for it.Next() {
		names = append(names, string(it.Key()))
	}
	return names, nil
}

// Count returns the number of stored meshes
func (s *MeshStore) Count() (int, error) {
	names, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}
