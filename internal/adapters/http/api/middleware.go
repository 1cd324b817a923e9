package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

// errorClasses names the failures a report or page can answer with. Any
// other 4xx is a client_error and any 5xx a server_error.
var errorClasses = map[int]string{
	http.StatusBadRequest:         "bad_window",
	http.StatusForbidden:          "ingest_disabled",
	http.StatusNotFound:           "not_found",
	http.StatusMethodNotAllowed:   "method_not_allowed",
	http.StatusConflict:           "ingest_running",
	http.StatusServiceUnavailable: "unavailable",
}

// MetricsMiddleware records count and latency of every request to endpoint,
// plus the error metrics when the handler answers with a 4xx or 5xx.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := float64(time.Since(began).Milliseconds())
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsed)

		if rec.status < http.StatusBadRequest {
			return
		}
		class, severity := classify(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		metrics.RecordErrorByType(class, severity)
		metrics.RecordErrorLatency("http", class, elapsed)
	}
}

// classify maps an error status to its metric label and severity.
func classify(status int) (class, severity string) {
	severity = "medium"
	if status >= http.StatusInternalServerError {
		severity = "high"
	}
	if c, ok := errorClasses[status]; ok {
		return c, severity
	}
	if status >= http.StatusInternalServerError {
		return "server_error", severity
	}
	return "client_error", severity
}

// statusRecorder remembers the status code a handler wrote. Handlers that
// never call WriteHeader answered 200.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status = code
		s.written = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RecoverMiddleware turns a handler panic into a 500 and logs it.
func RecoverMiddleware(next http.Handler, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.RecordErrorByComponent("http", "panic")
			l.Error(r.Context(), "handler panicked",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Any("panic", rec))
			writeError(w, http.StatusInternalServerError, "internal_error", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
