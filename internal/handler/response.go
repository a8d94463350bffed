package handler

// RESPONSE ENVELOPE:
// Every response carries a numeric "status" equal to the HTTP status code,
// plus either message/data on success or error on failure:
//
//	{"status": 201, "message": "Article successfully created", "data": {...}}
//	{"status": 404, "error": "Article not found"}
//
// Both shapes are render.Renderer values, so render.Render sets the status
// code and encodes them.

import (
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/auth"
	"github.com/sakif/articles-api/internal/model"
)

type successResponse struct {
	HTTPStatusCode int `json:"-"`

	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (s *successResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, s.HTTPStatusCode)
	return nil
}

// ErrResponse is the failure envelope. Field names the offending input on
// validation errors.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	Status    int    `json:"status"`
	ErrorText string `json:"error"`
	Field     string `json:"field,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// responder renders envelopes and reports server-side failures through the
// logger the handler was built with.
type responder struct {
	logger *slog.Logger
}

func (rs responder) respond(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	resp := &successResponse{
		HTTPStatusCode: status,
		Status:         status,
		Message:        message,
		Data:           data,
	}
	if err := render.Render(w, r, resp); err != nil {
		rs.logger.Error("failed to render response", slog.String("error", err.Error()))
	}
}

// httpStatus maps a domain error kind to a status code. Anything that is not
// an *apperror.AppError is a 500.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrFromError builds the failure envelope for err. Domain errors carry
// their own message. Store failures are reported as 500 with the
// underlying message.
func ErrFromError(err error) *ErrResponse {
	resp := &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         http.StatusInternalServerError,
		ErrorText:      err.Error(),
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := httpStatus(err)
		resp.HTTPStatusCode = status
		resp.Status = status
		resp.ErrorText = appErr.Message
		resp.Field = appErr.Field
	}
	return resp
}

func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rs.writeResponse(w, r, ErrFromError(err))
}

// writeResponse logs every 5xx before rendering it.
func (rs responder) writeResponse(w http.ResponseWriter, r *http.Request, resp *ErrResponse) {
	if resp.HTTPStatusCode >= http.StatusInternalServerError && resp.Err != nil {
		rs.logger.Error("request failed",
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", resp.HTTPStatusCode),
			slog.String("error", resp.Err.Error()),
		)
	}
	if err := render.Render(w, r, resp); err != nil {
		rs.logger.Error("failed to render error response", slog.String("error", err.Error()))
	}
}

// callerFrom returns the identity RequireAuth stored. It writes a 401 when
// the route was mounted without authentication.
func (rs responder) callerFrom(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		rs.writeError(w, r, apperror.Unauthorized("Token is not provided"))
	}
	return caller, ok
}

// NotFound and MethodNotAllowed replace chi's plain-text defaults.
func NotFound(logger *slog.Logger) http.HandlerFunc {
	rs := responder{logger: logger}
	return func(w http.ResponseWriter, r *http.Request) {
		rs.writeError(w, r, apperror.NotFound("Route"))
	}
}

func MethodNotAllowed(logger *slog.Logger) http.HandlerFunc {
	rs := responder{logger: logger}
	return func(w http.ResponseWriter, r *http.Request) {
		rs.writeResponse(w, r, &ErrResponse{
			HTTPStatusCode: http.StatusMethodNotAllowed,
			Status:         http.StatusMethodNotAllowed,
			ErrorText:      "Method not allowed",
		})
	}
}
