// Package model defines the data structures used throughout the application.
// The JSON tags are the wire names clients already depend on, so they keep
// camelCase even where the SQL columns use snake_case.
package model

import "time"

// Article is a piece of writing owned by exactly one author.
//
// AuthorID and AuthorName are copied from the caller's identity when the
// article is created and never change afterwards; only Title and Body are
// editable. The body travels as "article" on the wire.
type Article struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Body       string    `json:"article"`
	CreatedOn  time.Time `json:"createdOn"`
}

// ArticleWithComments is the read model for GET /articles/{id}.
// The capitalised keys match what existing clients parse.
type ArticleWithComments struct {
	Article  Article   `json:"Article"`
	Comments []Comment `json:"Comments"`
}
