// Package log emits logfmt lines keyed by request id, so every line of one
// request carries the same context.
package log

import (
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/patrickmn/go-cache"
)

// How long a request keeps its logger (and attached context) alive.
const loggerExpiry = 6 * time.Hour

var loggers = cache.New(loggerExpiry, 10*time.Minute)

var root = kitlog.With(
	kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr)),
	"ts", kitlog.DefaultTimestampUTC,
)

// AddContext attaches keyvals to every future line logged for requestID.
func AddContext(requestID string, keyvals ...interface{}) {
	loggers.Set(requestID, kitlog.With(forRequest(requestID), keyvals...), loggerExpiry)
}

func Log(requestID string, message string, keyvals ...interface{}) {
	_ = kitlog.With(forRequest(requestID), "msg", message).Log(keyvals...)
}

// LogError is Log with the error attached under the err key.
func LogError(requestID string, message string, err error, keyvals ...interface{}) {
	_ = kitlog.With(forRequest(requestID), "msg", message, "err", err).Log(keyvals...)
}

// LogNoRequestID is for the few paths that run outside a request, startup
// and shutdown mostly.
func LogNoRequestID(message string, keyvals ...interface{}) {
	_ = kitlog.With(root, "msg", message).Log(keyvals...)
}

func forRequest(requestID string) kitlog.Logger {
	if logger, found := loggers.Get(requestID); found {
		return logger.(kitlog.Logger)
	}
	logger := kitlog.With(root, "request_id", requestID)
	loggers.Set(requestID, logger, loggerExpiry)
	return logger
}
