package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

var flagTables = map[model.FlagTarget]string{
	model.FlagTargetArticle: "articles",
	model.FlagTargetComment: "comments",
}

func (db *DB) CreateFlag(ctx context.Context, flag *model.Flag) error {
	table, ok := flagTables[flag.TargetType]
	if !ok {
		return apperror.ValidationFailed("targetType", fmt.Sprintf("unknown flag target %q", flag.TargetType))
	}

	flag.ID = xid.New().String()
	if flag.CreatedOn.IsZero() {
		flag.CreatedOn = time.Now().UTC()
	}

	tag, err := db.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO flags (id, target_type, target_id, flagged_by, reason, created_on)
		 SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::timestamptz
		 WHERE EXISTS (SELECT 1 FROM %s WHERE id = $3)
		   AND NOT EXISTS (
		       SELECT 1 FROM flags WHERE target_type = $2 AND target_id = $3 AND flagged_by = $4)`, table),
		flag.ID, string(flag.TargetType), flag.TargetID, flag.FlaggedBy, flag.Reason, flag.CreatedOn,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Flag")
		}
		return fmt.Errorf("postgres: creating flag: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	found, err := exists(ctx, db.pool,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), flag.TargetID)
	if err != nil {
		return fmt.Errorf("postgres: checking flag target %s: %w", flag.TargetID, err)
	}
	if !found {
		return apperror.NotFound(targetName(flag.TargetType))
	}
	return apperror.Conflict("Flag")
}

func (db *DB) ListFlags(ctx context.Context, filter repository.FlagFilter) ([]model.Flag, error) {
	var (
		where []string
		args  []any
	)
	if filter.TargetType != "" {
		args = append(args, string(filter.TargetType))
		where = append(where, fmt.Sprintf("target_type = $%d", len(args)))
	}
	if filter.TargetID != "" {
		args = append(args, filter.TargetID)
		where = append(where, fmt.Sprintf("target_id = $%d", len(args)))
	}

	query := `SELECT id, target_type, target_id, flagged_by, reason, created_on FROM flags`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_on DESC, id DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing flags: %w", err)
	}
	defer rows.Close()

	flags := []model.Flag{}
	for rows.Next() {
		var (
			f          model.Flag
			targetType string
		)
		if err := rows.Scan(&f.ID, &targetType, &f.TargetID, &f.FlaggedBy, &f.Reason, &f.CreatedOn); err != nil {
			return nil, fmt.Errorf("postgres: scanning flag row: %w", err)
		}
		f.TargetType = model.FlagTarget(targetType)
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating flags: %w", err)
	}
	return flags, nil
}

func targetName(t model.FlagTarget) string {
	if t == model.FlagTargetComment {
		return "Comment"
	}
	return "Article"
}
