// Package repository declares the persistence gateway used by the service
// layer. Implementations live in the sqlite and postgres subpackages; services
// only ever see these interfaces.
//
// Every check-then-act operation (update after lookup, duplicate comment,
// delete authorization) is a single conditional statement or a transaction
// inside the implementation, so callers never race a read against a write.
package repository

import (
	"context"

	"github.com/sakif/articles-api/internal/model"
)

// DeleteOutcome describes what a conditional delete did. When Deleted is
// false the other fields explain why, as observed inside the same transaction.
type DeleteOutcome struct {
	Deleted bool
	Exists  bool
	Flags   int
}

// FlagFilter narrows ListFlags. Zero values match everything.
type FlagFilter struct {
	TargetType model.FlagTarget
	TargetID   string
}

type ArticleRepository interface {
	// CreateArticle fills in ID and CreatedOn.
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	// ListArticles returns every article, newest first.
	ListArticles(ctx context.Context) ([]model.Article, error)
	// UpdateArticle merges non-empty title/body over the stored values and
	// returns the result. apperror.ErrNotFound when no row has the id.
	UpdateArticle(ctx context.Context, id, title, body string) (*model.Article, error)
	// DeleteArticle removes the article when caller is its author, or when
	// caller is an admin and the article has at least one flag.
	DeleteArticle(ctx context.Context, id string, caller model.Identity) (DeleteOutcome, error)
}

type CommentRepository interface {
	// CreateComment inserts the comment unless the article is missing
	// (apperror.ErrNotFound) or already has a comment with identical text
	// (apperror.ErrConflict). It returns the parent article.
	CreateComment(ctx context.Context, comment *model.Comment) (*model.Article, error)
	// ListComments returns the article's comments, oldest first.
	ListComments(ctx context.Context, articleID string) ([]model.Comment, error)
}

type FlagRepository interface {
	// CreateFlag inserts the flag unless the target is missing
	// (apperror.ErrNotFound) or the user already flagged it (apperror.ErrConflict).
	CreateFlag(ctx context.Context, flag *model.Flag) error
	ListFlags(ctx context.Context, filter FlagFilter) ([]model.Flag, error)
}

type UserRepository interface {
	// CreateUser fills in ID and CreatedOn. apperror.ErrConflict on a taken email.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Store is the whole gateway, owned by the server and closed on shutdown.
type Store interface {
	ArticleRepository
	CommentRepository
	FlagRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}
