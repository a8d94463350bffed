package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

const articleColumns = `id, author_id, author_name, title, article, created_on`

// CreateArticle inserts a new article.
//
// xid IDs are 20 URL-safe characters and sort by creation time, which makes
// them a usable tie-breaker when two articles share a created_on value.
// CreatedOn is left alone when the caller already set it (imports, tests).
func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	article.ID = xid.New().String()
	if article.CreatedOn.IsZero() {
		article.CreatedOn = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO articles (id, author_id, author_name, title, article, created_on)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.AuthorID,
		article.AuthorName,
		article.Title,
		article.Body,
		article.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating article: %w", err)
	}
	return nil
}

// GetArticle retrieves a single article by its ID.
// sql.ErrNoRows is translated to apperror.NotFound so the handler answers 404.
func (db *DB) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return getArticle(ctx, db.conn, id)
}

func getArticle(ctx context.Context, q querier, id string) (*model.Article, error) {
	var a model.Article
	err := q.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id,
	).Scan(&a.ID, &a.AuthorID, &a.AuthorName, &a.Title, &a.Body, &a.CreatedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Article")
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return &a, nil
}

// ListArticles returns every article, newest first. There is no pagination.
func (db *DB) ListArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY created_on DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	// CRITICAL: always close rows, they hold the pool's only connection.
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		var a model.Article
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.AuthorName, &a.Title, &a.Body, &a.CreatedOn); err != nil {
			return nil, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating articles: %w", err)
	}
	return articles, nil
}

// UpdateArticle merges title and body over the stored row.
//
// MERGE IN SQL, NOT IN GO:
// COALESCE(NULLIF(?, ''), title) keeps the current value when the new one is
// blank. Doing the merge inside the UPDATE means there is no separate lookup
// for a concurrent delete to slip in front of; RowsAffected == 0 is the
// not-found signal. The re-read shares the transaction so it sees the row
// this statement wrote.
func (db *DB) UpdateArticle(ctx context.Context, id, title, body string) (*model.Article, error) {
	var updated *model.Article
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE articles
			 SET title = COALESCE(NULLIF(?, ''), title),
			     article = COALESCE(NULLIF(?, ''), article)
			 WHERE id = ?`,
			title, body, id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating article %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("Article")
		}

		updated, err = getArticle(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteArticle removes the article if caller is allowed to.
//
// The authorization rule lives in the WHERE clause: the author may always
// delete, an admin may delete once the article carries a flag. When nothing
// was deleted the same transaction reads back whether the row exists and how
// many flags it has, so the service can tell 404 from the two 403 cases.
func (db *DB) DeleteArticle(ctx context.Context, id string, caller model.Identity) (repository.DeleteOutcome, error) {
	var out repository.DeleteOutcome
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM articles
			 WHERE id = ?
			   AND (author_id = ?
			        OR (? AND EXISTS (
			            SELECT 1 FROM flags
			            WHERE target_type = 'article' AND target_id = articles.id)))`,
			id, caller.ID, caller.IsAdmin,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}

		if n > 0 {
			out = repository.DeleteOutcome{Deleted: true, Exists: true}
			// Comments went with the cascade; drop the flags that pointed at
			// the article or at those comments.
			_, err = tx.ExecContext(ctx,
				`DELETE FROM flags
				 WHERE (target_type = 'article' AND target_id = ?)
				    OR (target_type = 'comment' AND target_id NOT IN (SELECT id FROM comments))`,
				id,
			)
			if err != nil {
				return fmt.Errorf("sqlite: deleting flags for article %s: %w", id, err)
			}
			return nil
		}

		out.Exists, err = exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = ?)`, id)
		if err != nil {
			return fmt.Errorf("sqlite: checking article %s: %w", id, err)
		}
		if !out.Exists {
			return nil
		}
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM flags WHERE target_type = 'article' AND target_id = ?`, id,
		).Scan(&out.Flags)
		if err != nil {
			return fmt.Errorf("sqlite: counting flags for article %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return repository.DeleteOutcome{}, err
	}
	return out, nil
}
