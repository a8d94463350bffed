package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
)

// CreateComment inserts a comment and returns its parent article; see the
// sqlite implementation for the conditional insert shape.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) (*model.Article, error) {
	comment.ID = xid.New().String()
	if comment.PostedOn.IsZero() {
		comment.PostedOn = time.Now().UTC()
	}

	var parent *model.Article
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO comments (id, author_id, article_id, comment, posted_on)
			 SELECT $1::text, $2::text, $3::text, $4::text, $5::timestamptz
			 WHERE EXISTS (SELECT 1 FROM articles WHERE id = $3)
			   AND NOT EXISTS (SELECT 1 FROM comments WHERE article_id = $3 AND md5(comment) = md5($4) AND comment = $4)`,
			comment.ID, comment.AuthorID, comment.ArticleID, comment.Text, comment.PostedOn,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("Comment")
			}
			return fmt.Errorf("postgres: creating comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			found, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, comment.ArticleID)
			if err != nil {
				return fmt.Errorf("postgres: checking article %s: %w", comment.ArticleID, err)
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

func (db *DB) ListComments(ctx context.Context, articleID string) ([]model.Comment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, author_id, article_id, comment, posted_on
		 FROM comments
		 WHERE article_id = $1
		 ORDER BY posted_on ASC, id ASC`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing comments for %s: %w", articleID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.ArticleID, &c.Text, &c.PostedOn); err != nil {
			return nil, fmt.Errorf("postgres: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating comments: %w", err)
	}
	return comments, nil
}
