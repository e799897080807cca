package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/strmhub/transcoder/errors"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/metrics"
	"github.com/strmhub/transcoder/requests"
)

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

// LogRequest wraps a handler with request logging, latency metrics and
// panic recovery.
func LogRequest() func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			requestID := requests.GetRequestID(r)

			defer func() {
				if err := recover(); err != nil {
					errors.WriteHTTPInternalServerError(wrapped, "Internal Server Error")
					log.Log(requestID, "panic in handler", "panic", err, "trace", string(debug.Stack()))
				}
			}()

			next(wrapped, r, ps)

			duration := time.Since(start)
			metrics.HTTPRequestDurationSec.
				WithLabelValues(strconv.Itoa(wrapped.status)).
				Observe(duration.Seconds())
			log.Log(requestID,
				"http request",
				"remote", r.RemoteAddr,
				"method", r.Method,
				"uri", r.URL.RequestURI(),
				"duration", duration,
				"status", wrapped.status,
			)
		}
	}
}
