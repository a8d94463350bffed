// Package service holds the business rules of the articles API.
//
// LAYERING:
//
//	Handler (HTTP)     → decodes requests, writes JSON envelopes
//	Service (business) → sanitizes, validates, decides who may do what
//	Repository (data)  → conditional SQL against SQLite or PostgreSQL
//
// Services take repository interfaces and a *slog.Logger, return domain
// errors from internal/apperror, and never see an http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
	"github.com/sakif/articles-api/internal/validator"
)

const (
	MaxTitleLength   = 200
	MaxBodyLength    = 50000
	MaxCommentLength = 5000
)

var validate = validator.New()

// Length rules, counted in runes.
var (
	titleMax   = fmt.Sprintf("max=%d", MaxTitleLength)
	bodyMax    = fmt.Sprintf("max=%d", MaxBodyLength)
	commentMax = fmt.Sprintf("max=%d", MaxCommentLength)
)

// Messages clients match on.
const (
	MsgNothingWritten   = "You didn't write anything"
	MsgNotAuthorized    = "Not Authorized"
	MsgUnflaggedArticle = "Cannot delete an unflagged article"
)

// ArticleStore is the persistence the article service needs.
type ArticleStore interface {
	repository.ArticleRepository
	repository.CommentRepository
}

type ArticleService struct {
	store     ArticleStore
	sanitizer *Sanitizer
	logger    *slog.Logger
}

func NewArticleService(store ArticleStore, sanitizer *Sanitizer, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		store:     store,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// List returns every article, newest first.
func (s *ArticleService) List(ctx context.Context) ([]model.Article, error) {
	articles, err := s.store.ListArticles(ctx)
	if err != nil {
		s.logger.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return articles, nil
}

// Create stores a new article authored by caller. The author fields come
// from the identity only.
func (s *ArticleService) Create(ctx context.Context, caller model.Identity, title, body string) (*model.Article, error) {
	title = s.sanitizer.Clean(title)
	body = s.sanitizer.Clean(body)

	if err := validate.Var("title", title, "notblank,"+titleMax); err != nil {
		return nil, err
	}
	if err := validate.Var("article", body, "notblank,"+bodyMax); err != nil {
		return nil, err
	}

	article := &model.Article{
		AuthorID:   caller.ID,
		AuthorName: caller.DisplayName(),
		Title:      title,
		Body:       body,
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		s.logger.Error("failed to create article",
			slog.String("author", caller.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating article: %w", err)
	}

	s.logger.Info("article created",
		slog.String("id", article.ID),
		slog.String("author", article.AuthorID),
	)
	return article, nil
}

// Get returns an article with its comments in posting order.
func (s *ArticleService) Get(ctx context.Context, id string) (*model.ArticleWithComments, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, s.storeError("getting article", id, err)
	}

	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, s.storeError("listing comments", id, err)
	}

	return &model.ArticleWithComments{Article: *article, Comments: comments}, nil
}

// Update merges title and body into the stored article; a blank value keeps
// the current one. Any authenticated caller may edit.
func (s *ArticleService) Update(ctx context.Context, id, title, body string) (*model.Article, error) {
	title = blankToEmpty(s.sanitizer.Clean(title))
	body = blankToEmpty(s.sanitizer.Clean(body))

	if err := validate.Var("title", title, "omitempty,"+titleMax); err != nil {
		return nil, err
	}
	if err := validate.Var("article", body, "omitempty,"+bodyMax); err != nil {
		return nil, err
	}

	article, err := s.store.UpdateArticle(ctx, id, title, body)
	if err != nil {
		return nil, s.storeError("updating article", id, err)
	}

	s.logger.Info("article edited", slog.String("id", id))
	return article, nil
}

// Delete removes the article when caller wrote it, or when caller is an
// admin and the article has been flagged. The store applies the rule in one
// statement; the outcome only picks the error.
func (s *ArticleService) Delete(ctx context.Context, caller model.Identity, id string) error {
	out, err := s.store.DeleteArticle(ctx, id, caller)
	if err != nil {
		return s.storeError("deleting article", id, err)
	}

	switch {
	case out.Deleted:
		s.logger.Info("article deleted",
			slog.String("id", id),
			slog.String("by", caller.ID),
			slog.Bool("admin", caller.IsAdmin),
		)
		return nil
	case !out.Exists:
		return apperror.NotFound("Article")
	case caller.IsAdmin && out.Flags == 0:
		return apperror.Forbidden(MsgUnflaggedArticle)
	default:
		return apperror.Forbidden(MsgNotAuthorized)
	}
}

// CreateComment posts text on an article. Text is stored as sent and must be
// unique within the article (exact, case-sensitive match, whitespace
// included).
func (s *ArticleService) CreateComment(ctx context.Context, caller model.Identity, articleID, text string) (*model.PostedComment, error) {
	text = s.sanitizer.Clean(text)
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("comment", MsgNothingWritten)
	}
	if err := validate.Var("comment", text, commentMax); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AuthorID:  caller.ID,
		ArticleID: articleID,
		Text:      text,
	}
	article, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, s.storeError("posting comment", articleID, err)
	}

	s.logger.Info("comment posted",
		slog.String("id", comment.ID),
		slog.String("article", articleID),
		slog.String("author", caller.ID),
	)
	return &model.PostedComment{
		ArticleTitle: article.Title,
		ArticleBody:  article.Body,
		Comment:      *comment,
	}, nil
}

// storeError passes domain errors through untouched and logs and wraps
// everything else.
func (s *ArticleService) storeError(op, id string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("failed "+op,
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s %s: %w", op, id, err)
}

// blankToEmpty maps whitespace-only input to "", which the store reads as
// "keep the current value".
func blankToEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
