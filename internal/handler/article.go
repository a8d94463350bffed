package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/articles-api/internal/service"
)

// Success messages clients match on.
const (
	msgAllArticles    = "All articles"
	msgArticleCreated = "Article successfully created"
	msgSuccess        = "Success"
	msgArticleEdited  = "Article successfully edited"
	msgArticleDeleted = "Article successfully deleted"
	msgCommentPosted  = "Comment posted successfully"
)

// ArticleHandler serves /articles and its comment sub-resource. Every route
// sits behind auth.RequireAuth.
type ArticleHandler struct {
	responder
	articles *service.ArticleService
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, responder: responder{logger: logger}}
}

// HandleList returns every article, newest first.
//
// HTTP: GET /articles
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgAllArticles, map[string]any{"articles": articles})
}

// HandleCreate stores a new article written by the caller.
//
// HTTP: POST /articles
// REQUEST BODY: {"title": "...", "article": "..."}
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerFrom(w, r)
	if !ok {
		return
	}

	var req createArticleRequest
	if err := bind(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	article, err := h.articles.Create(r.Context(), caller, deref(req.Title), deref(req.Article))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, msgArticleCreated, article)
}

// HandleGet returns one article and its comments.
//
// HTTP: GET /articles/{articleID}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	result, err := h.articles.Get(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgSuccess, result)
}

// HandleUpdate merges the supplied fields into the article.
//
// HTTP: PATCH /articles/{articleID}
// REQUEST BODY: {"title"?: "...", "article"?: "..."}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateArticleRequest
	if err := bind(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}

	title, body := req.values()
	article, err := h.articles.Update(r.Context(), chi.URLParam(r, "articleID"), title, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgArticleEdited, map[string]any{"article": article})
}

// HandleDelete removes an article. Authors may delete their own; admins may
// delete flagged ones.
//
// HTTP: DELETE /articles/{articleID}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerFrom(w, r)
	if !ok {
		return
	}

	if err := h.articles.Delete(r.Context(), caller, chi.URLParam(r, "articleID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, msgArticleDeleted, nil)
}

// HandleCreateComment posts a comment on an article.
//
// HTTP: POST /articles/{articleID}/comments
// REQUEST BODY: {"comment": "..."}
func (h *ArticleHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.callerFrom(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := bind(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	posted, err := h.articles.CreateComment(r.Context(), caller, chi.URLParam(r, "articleID"), deref(req.Comment))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, msgCommentPosted, posted)
}
