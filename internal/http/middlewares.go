package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/metrics"
	"github.com/classattendance/internal/subjects"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

func WithMiddlewares(middlewares ...Middleware) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		for i := len(middlewares) - 1; i > -1; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

const requestIDHeader = "X-Request-Id"

// WithAccessLogs logs every request and tags it with a request id, reusing
// the one sent by the client if any.
func WithAccessLogs(logger *slog.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = gonanoid.Must()
			}
			w.Header().Set(requestIDHeader, requestID)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next(rec, r)

			logger.InfoContext(r.Context(), "http request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.code(),
				"duration", time.Since(start))
		}
	}
}

func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if m == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next(rec, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.code())).Inc()
			m.HTTPDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
		}
	}
}

// WithSubject answers 404 for requests about subjects that are not registered.
func WithSubject(registry *subjects.Registry) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			subject := subjectFromPath(r)
			if !registry.Contains(r.Context(), subject) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": fmt.Errorf("%w: subject %q", errs.ErrNotFound, subject).Error(),
				})
				return
			}
			next(w, r)
		}
	}
}
