package internalgrpc

import (
	"net"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		latency := time.Since(start)
		s.metrics.observeRequest(r.Method, rec.status, latency.Seconds())

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		s.logger.Info("http request",
			"ip", ip,
			"method", r.Method,
			"path", r.URL.Path,
			"proto", r.Proto,
			"status", rec.status,
			"latency", latency.String(),
			"user_agent", r.UserAgent(),
		)
	})
}
