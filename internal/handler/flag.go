package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
	"github.com/sakif/articles-api/internal/service"
)

const (
	msgFlagged  = "Flag recorded"
	msgAllFlags = "All flags"
)

// FlagHandler lets any signed-in caller flag an article or a comment, and
// lets admins review what has been flagged.
type FlagHandler struct {
	responder
	flags *service.FlagService
}

func NewFlagHandler(flags *service.FlagService, logger *slog.Logger) *FlagHandler {
	return &FlagHandler{flags: flags, responder: responder{logger: logger}}
}

// HandleFlagArticle flags the article in the URL.
//
// HTTP: POST /articles/{articleID}/flags
// REQUEST BODY: {"reason"?: "..."}
func (h *FlagHandler) HandleFlagArticle(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, model.FlagTargetArticle, chi.URLParam(r, "articleID"))
}

// HandleFlagComment flags the comment in the URL.
//
// HTTP: POST /comments/{commentID}/flags
func (h *FlagHandler) HandleFlagComment(w http.ResponseWriter, r *http.Request) {
	h.flag(w, r, model.FlagTargetComment, chi.URLParam(r, "commentID"))
}

func (h *FlagHandler) flag(w http.ResponseWriter, r *http.Request, target model.FlagTarget, targetID string) {
	caller, ok := h.callerFrom(w, r)
	if !ok {
		return
	}

	var req flagRequest
	if err := bind(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}

	flag, err := h.flags.Flag(r.Context(), caller, target, targetID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, msgFlagged, map[string]any{"flag": flag})
}

// HandleList returns flags, newest first. Admin only.
//
// HTTP: GET /flags?type=article|comment&targetId=...
func (h *FlagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.FlagFilter{
		TargetType: model.FlagTarget(q.Get("type")),
		TargetID:   q.Get("targetId"),
	}

	flags, err := h.flags.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgAllFlags, map[string]any{"flags": flags})
}
