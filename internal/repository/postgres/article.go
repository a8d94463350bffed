package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

const articleColumns = `id, author_id, author_name, title, article, created_on`

func scanArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	if err := row.Scan(&a.ID, &a.AuthorID, &a.AuthorName, &a.Title, &a.Body, &a.CreatedOn); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	article.ID = xid.New().String()
	if article.CreatedOn.IsZero() {
		article.CreatedOn = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO articles (id, author_id, author_name, title, article, created_on)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		article.ID, article.AuthorID, article.AuthorName, article.Title, article.Body, article.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating article: %w", err)
	}
	return nil
}

func (db *DB) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return getArticle(ctx, db.pool, id)
}

func getArticle(ctx context.Context, q querier, id string) (*model.Article, error) {
	a, err := scanArticle(q.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("Article")
		}
		return nil, fmt.Errorf("postgres: getting article %s: %w", id, err)
	}
	return a, nil
}

func (db *DB) ListArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY created_on DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning article row: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating articles: %w", err)
	}
	return articles, nil
}

// UpdateArticle merges and returns the row in one statement.
func (db *DB) UpdateArticle(ctx context.Context, id, title, body string) (*model.Article, error) {
	a, err := scanArticle(db.pool.QueryRow(ctx,
		`UPDATE articles
		 SET title = COALESCE(NULLIF($1, ''), title),
		     article = COALESCE(NULLIF($2, ''), article)
		 WHERE id = $3
		 RETURNING `+articleColumns,
		title, body, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("Article")
		}
		return nil, fmt.Errorf("postgres: updating article %s: %w", id, err)
	}
	return a, nil
}

func (db *DB) DeleteArticle(ctx context.Context, id string, caller model.Identity) (repository.DeleteOutcome, error) {
	var out repository.DeleteOutcome
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM articles
			 WHERE id = $1
			   AND (author_id = $2
			        OR ($3::boolean AND EXISTS (
			            SELECT 1 FROM flags
			            WHERE target_type = 'article' AND target_id = articles.id)))`,
			id, caller.ID, caller.IsAdmin,
		)
		if err != nil {
			return fmt.Errorf("postgres: deleting article %s: %w", id, err)
		}

		if tag.RowsAffected() > 0 {
			out = repository.DeleteOutcome{Deleted: true, Exists: true}
			_, err = tx.Exec(ctx,
				`DELETE FROM flags
				 WHERE (target_type = 'article' AND target_id = $1)
				    OR (target_type = 'comment' AND NOT EXISTS (
				        SELECT 1 FROM comments WHERE comments.id = flags.target_id))`,
				id,
			)
			if err != nil {
				return fmt.Errorf("postgres: deleting flags for article %s: %w", id, err)
			}
			return nil
		}

		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1),
			        (SELECT COUNT(*) FROM flags WHERE target_type = 'article' AND target_id = $1)`,
			id,
		).Scan(&out.Exists, &out.Flags)
		if err != nil {
			return fmt.Errorf("postgres: checking article %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return repository.DeleteOutcome{}, err
	}
	return out, nil
}
