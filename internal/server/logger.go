package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger is a middleware to log HTTP requests.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		ev := log.Info()
		if ww.statusCode >= http.StatusInternalServerError {
			ev = log.Error()
		} else if r.URL.Path == "/metrics" {
			ev = log.Debug()
		}
		logRequest(ev, r, ww.statusCode, time.Since(start))
	})
}

func logRequest(ev *zerolog.Event, r *http.Request, status int, d time.Duration) {
	ev.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("ip", r.RemoteAddr).
		Dur("duration", d).
		Msg("Request processed")
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing to the underlying response writer.
func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE responses through the wrapper.
func (w *responseWriterWrapper) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
