package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aleksaelezovic/plywrite/internal/meshdoc"
	"github.com/aleksaelezovic/plywrite/internal/storage"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/goccy/go-json"
)

var contentTypes = map[ply.Format]string{
	ply.FormatASCII:              "application/x-ply-ascii",
	ply.FormatBinaryLittleEndian: "application/x-ply-binary-le",
	ply.FormatBinaryBigEndian:    "application/x-ply-binary-be",
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", statusCode, "error", message)
	}

	s.writeJSON(w, statusCode, map[string]any{
		"error": map[string]any{
			"code":    statusCode,
			"message": message,
		},
	})
}

// errorStatus maps store and document errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, meshdoc.ErrInvalidDocument),
		errors.Is(err, ply.ErrUnsupportedType),
		errors.Is(err, ply.ErrMismatchedLength),
		errors.Is(err, ply.ErrCountOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// negotiateFormat picks the output format from the format query parameter,
// then the Accept header, then the server default
func (s *Server) negotiateFormat(r *http.Request) (ply.Format, error) {
	if q := r.URL.Query().Get("format"); q != "" {
		return ply.ParseFormat(q)
	}

	accept := strings.ToLower(r.Header.Get("Accept"))
	switch {
	case strings.Contains(accept, "application/x-ply-binary-be"):
		return ply.FormatBinaryBigEndian, nil
	case strings.Contains(accept, "application/x-ply-binary"),
		strings.Contains(accept, "application/octet-stream"):
		return ply.FormatBinaryLittleEndian, nil
	case strings.Contains(accept, "application/x-ply-ascii"),
		strings.Contains(accept, "text/plain"):
		return ply.FormatASCII, nil
	}
	return s.format, nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// flushWriter pushes every write to the client
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) flushWriter {
	return flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
