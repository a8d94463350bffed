package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
)

// CreateComment inserts a comment and returns its parent article.
//
// CONDITIONAL INSERT:
// INSERT ... SELECT ... WHERE EXISTS/NOT EXISTS only writes a row when the
// article is there and has no comment with the same text. SQLite compares
// TEXT with the BINARY collation, so the duplicate check is exact and
// case-sensitive. A zero row count is classified afterwards inside the same
// transaction; the unique index catches anything that still gets through.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) (*model.Article, error) {
	comment.ID = xid.New().String()
	if comment.PostedOn.IsZero() {
		comment.PostedOn = time.Now().UTC()
	}

	var parent *model.Article
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, author_id, article_id, comment, posted_on)
			 SELECT ?, ?, ?, ?, ?
			 WHERE EXISTS (SELECT 1 FROM articles WHERE id = ?)
			   AND NOT EXISTS (SELECT 1 FROM comments WHERE article_id = ? AND comment = ?)`,
			comment.ID, comment.AuthorID, comment.ArticleID, comment.Text, comment.PostedOn,
			comment.ArticleID,
			comment.ArticleID, comment.Text,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("Comment")
			}
			return fmt.Errorf("sqlite: creating comment: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			found, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = ?)`, comment.ArticleID)
			if err != nil {
				return fmt.Errorf("sqlite: checking article %s: %w", comment.ArticleID, err)
			}
			if !found {
				return apperror.NotFound("Article")
			}
			return apperror.Conflict("Comment")
		}

		parent, err = getArticle(ctx, tx, comment.ArticleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// ListComments returns an article's comments in the order they were posted.
func (db *DB) ListComments(ctx context.Context, articleID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, author_id, article_id, comment, posted_on
		 FROM comments
		 WHERE article_id = ?
		 ORDER BY posted_on ASC, id ASC`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for %s: %w", articleID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.ArticleID, &c.Text, &c.PostedOn); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
