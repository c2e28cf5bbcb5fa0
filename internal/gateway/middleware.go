// internal/gateway/middleware.go
package gateway

import (
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records every request under its route pattern.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		elapsed := time.Since(start)

		s.obs.RecordRequest(r.Context(), route, r.Method, rec.status, elapsed)
		s.logger.Debug("request served", map[string]interface{}{
			"route":     route,
			"status":    rec.status,
			"elapsedMs": elapsed.Milliseconds(),
		})
	})
}
