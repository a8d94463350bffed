package model

import "time"

// Comment is a remark left on an article. Comments are never edited.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	ArticleID string    `json:"articleId"`
	Text      string    `json:"comment"`
	PostedOn  time.Time `json:"postedOn"`
}

// PostedComment is returned after a comment is created. It carries the
// parent article's title and body so a client can render context without a
// second request.
type PostedComment struct {
	ArticleTitle string  `json:"articleTitle"`
	ArticleBody  string  `json:"article"`
	Comment      Comment `json:"comment"`
}
