// Package sink writes PLY streams to their destination.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aleksaelezovic/plywrite/internal/storage"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds ExportAll
const DefaultConcurrency = 4

// Sink stores one named PLY file
type Sink interface {
	Write(ctx context.Context, name string, s *ply.Stream) (int64, error)
}

// Result reports one exported mesh
type Result struct {
	Name  string
	Bytes int64
}

// Exporter converts stored meshes and hands them to a sink
type Exporter struct {
	Store       *storage.MeshStore
	Sink        Sink
	Options     []ply.Option
	Concurrency int
	Logger      *slog.Logger
}

// ExportAll exports names concurrently, or every stored mesh when names is
// empty. The first failure cancels the rest.
func (e *Exporter) ExportAll(ctx context.Context, names []string) ([]Result, error) {
	if len(names) == 0 {
		var err error
		if names, err = e.Store.List(); err != nil {
			return nil, err
		}
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := e.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			n, err := e.Export(ctx, name)
			if err != nil {
				return err
			}
			results[i] = Result{Name: name, Bytes: n}
			logger.Info("exported mesh",
				"name", name,
				"bytes", n,
				"duration", time.Since(start),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Export converts one stored mesh
func (e *Exporter) Export(ctx context.Context, name string) (int64, error) {
	m, err := e.Store.Mesh(name)
	if err != nil {
		return 0, err
	}
	s, err := ply.NewStream(m, e.Options...)
	if err != nil {
		return 0, fmt.Errorf("mesh %s: %w", name, err)
	}
	n, err := e.Sink.Write(ctx, name, s)
	if err != nil {
		return n, fmt.Errorf("mesh %s: %w", name, err)
	}
	return n, nil
}
