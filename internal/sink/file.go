package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleksaelezovic/plywrite/pkg/ply"
)

// FileSink writes <Dir>/<name>.ply. A file only appears once fully written.
type FileSink struct {
	Dir string
}

func (f FileSink) Path(name string) string {
	return filepath.Join(f.Dir, name+".ply")
}

func (f FileSink) Write(ctx context.Context, name string, s *ply.Stream) (int64, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, "."+name+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := s.WriteContext(ctx, tmp)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), f.Path(name)); err != nil {
		return n, fmt.Errorf("failed to rename output: %w", err)
	}
	return n, nil
}
