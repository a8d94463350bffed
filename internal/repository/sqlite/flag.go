package sqlite

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

// flagTables maps a flag target to the table its id lives in. Only these
// constant names are ever interpolated into SQL.
var flagTables = map[model.FlagTarget]string{
	model.FlagTargetArticle: "articles",
	model.FlagTargetComment: "comments",
}

// CreateFlag records a flag against an article or comment. Same conditional
// insert shape as CreateComment: the target must exist and the user must not
// have flagged it already.
func (db *DB) CreateFlag(ctx context.Context, flag *model.Flag) error {
	table, ok := flagTables[flag.TargetType]
	if !ok {
		return apperror.ValidationFailed("targetType", fmt.Sprintf("unknown flag target %q", flag.TargetType))
	}

	flag.ID = xid.New().String()
	if flag.CreatedOn.IsZero() {
		flag.CreatedOn = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO flags (id, target_type, target_id, flagged_by, reason, created_on)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM %s WHERE id = ?)
		   AND NOT EXISTS (
		       SELECT 1 FROM flags WHERE target_type = ? AND target_id = ? AND flagged_by = ?)`, table),
		flag.ID, flag.TargetType, flag.TargetID, flag.FlaggedBy, flag.Reason, flag.CreatedOn,
		flag.TargetID,
		flag.TargetType, flag.TargetID, flag.FlaggedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Flag")
		}
		return fmt.Errorf("sqlite: creating flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	found, err := exists(ctx, db.conn,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = ?)`, table), flag.TargetID)
	if err != nil {
		return fmt.Errorf("sqlite: checking flag target %s: %w", flag.TargetID, err)
	}
	if !found {
		return apperror.NotFound(targetName(flag.TargetType))
	}
	return apperror.Conflict("Flag")
}

// ListFlags returns flags matching filter, newest first.
func (db *DB) ListFlags(ctx context.Context, filter repository.FlagFilter) ([]model.Flag, error) {
	var (
		where []string
		args  []any
	)
	if filter.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, filter.TargetType)
	}
	if filter.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, filter.TargetID)
	}

	query := `SELECT id, target_type, target_id, flagged_by, reason, created_on FROM flags`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_on DESC, id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing flags: %w", err)
	}
	defer rows.Close()

	flags := []model.Flag{}
	for rows.Next() {
		var f model.Flag
		if err := rows.Scan(&f.ID, &f.TargetType, &f.TargetID, &f.FlaggedBy, &f.Reason, &f.CreatedOn); err != nil {
			return nil, fmt.Errorf("sqlite: scanning flag row: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating flags: %w", err)
	}
	return flags, nil
}

func targetName(t model.FlagTarget) string {
	if t == model.FlagTargetComment {
		return "Comment"
	}
	return "Article"
}
