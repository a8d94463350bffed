package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is the part of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers within two seconds.
//
// HTTP: GET /healthz
func Health(store Pinger, logger *slog.Logger) http.HandlerFunc {
	rs := responder{logger: logger}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			rs.renderUnavailable(w, r, err)
			return
		}
		rs.respond(w, r, http.StatusOK, "ok", nil)
	}
}

func (rs responder) renderUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrFromError(err)
	resp.HTTPStatusCode = http.StatusServiceUnavailable
	resp.Status = http.StatusServiceUnavailable
	rs.writeResponse(w, r, resp)
}
