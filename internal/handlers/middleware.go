package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger attaches logger to every request, tags the request with an
// ID and writes one access log line per response. The level follows the
// response status.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(accessLog)(next)
		h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
		return hlog.NewHandler(logger)(h)
	}
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)

	var e *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		e = logger.Error()
	case status >= http.StatusBadRequest:
		e = logger.Info()
	default:
		e = logger.Debug()
	}
	e.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
