package server

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/listicons/observe"
)

// statusRecorder captures the response status for telemetry.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// errServerStatus marks 5xx responses as failed operations.
type errServerStatus int

func (e errServerStatus) Error() string { return fmt.Sprintf("http status %d", int(e)) }

// handle mounts h on pattern, wrapped in a span, duration metric and log
// entry named after the pattern.
func (s *Server) handle(pattern string, h http.Handler) {
	op := observe.Operation{Component: "http", Name: pattern}
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		_ = s.mw.Run(r.Context(), op.With(attribute.String("http.method", r.Method)), func(ctx context.Context) error {
			h.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status >= http.StatusInternalServerError {
				return errServerStatus(rec.status)
			}
			return nil
		})
	}))
}
