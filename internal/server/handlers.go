package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aleksaelezovic/plywrite/pkg/ply"
)

// handleRoot describes the service
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	count, err := s.meshes.Count()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Store error: %v", err))
		return
	}
	hits, misses := s.cache.Stats()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":        "plywrite",
		"ply_version":    ply.Version,
		"meshes":         count,
		"formats":        ply.SupportedFormats(),
		"default_format": s.format.String(),
		"plan_cache": map[string]any{
			"size":   s.cache.Len(),
			"hits":   hits,
			"misses": misses,
		},
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.meshes.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Store error: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"meshes": names})
}

// handleGet streams a stored mesh as PLY, flushing each chunk. Type and
// length errors are reported before the status line; encoding errors after it
// can only abort the body.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	format, err := s.negotiateFormat(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.meshes.Mesh(name)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	stream, err := ply.NewStream(m,
		ply.WithFormat(format),
		ply.WithPlanCache(s.cache),
		ply.WithLogger(s.logger),
	)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".ply"))
	h.Set("X-Ply-Vertices", strconv.Itoa(stream.VertexCount()))
	h.Set("X-Ply-Faces", strconv.Itoa(stream.FaceCount()))
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	n, err := stream.WriteContext(r.Context(), newFlushWriter(w))
	if err != nil {
		s.logger.Error("stream aborted",
			"name", name,
			"format", format.String(),
			"written", n,
			"error", err,
		)
		return
	}
	s.logger.Debug("streamed mesh",
		"name", name,
		"format", format.String(),
		"bytes", n,
		"duration", time.Since(start),
	)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.meshes.Info(r.PathValue("name"))
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handlePut stores a JSON mesh document
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Document exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	info, err := s.meshes.Put(r.PathValue("name"), body)
	if err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.meshes.Delete(r.PathValue("name")); err != nil {
		s.writeError(w, errorStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
