package httpserver

import (
	"net/http"
	"time"

	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// AccessLogMiddleware logs every request and records it in the API metrics
// under the label route returns.
func AccessLogMiddleware(route func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		dur := time.Since(start)
		label := route(r)
		metrics.RecordAPIRequest(r.Method, label, rec.status, dur)

		ev := logging.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = logging.Warn()
		}
		ev.Str("method", r.Method).
			Str("route", label).
			Int("status", rec.status).
			Dur("duration", dur).
			Msg("request")
	})
}
