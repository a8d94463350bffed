package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

const MaxReasonLength = 500

var (
	reasonMax  = fmt.Sprintf("max=%d", MaxReasonLength)
	targetRule = fmt.Sprintf("oneof=%s %s", model.FlagTargetArticle, model.FlagTargetComment)
)

// FlagService records moderation flags. A flag on an article is what lets
// an admin delete it.
type FlagService struct {
	flags     repository.FlagRepository
	sanitizer *Sanitizer
	logger    *slog.Logger
}

func NewFlagService(flags repository.FlagRepository, sanitizer *Sanitizer, logger *slog.Logger) *FlagService {
	return &FlagService{
		flags:     flags,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Flag marks target/targetID on behalf of caller. Each caller can flag a
// given target once.
func (s *FlagService) Flag(ctx context.Context, caller model.Identity, target model.FlagTarget, targetID, reason string) (*model.Flag, error) {
	if err := validate.Var("targetType", string(target), targetRule); err != nil {
		return nil, err
	}
	reason = s.sanitizer.Clean(reason)
	if err := validate.Var("reason", reason, reasonMax); err != nil {
		return nil, err
	}

	flag := &model.Flag{
		TargetType: target,
		TargetID:   targetID,
		FlaggedBy:  caller.ID,
		Reason:     reason,
	}
	if err := s.flags.CreateFlag(ctx, flag); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		s.logger.Error("failed to create flag",
			slog.String("target", targetID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("flagging %s %s: %w", target, targetID, err)
	}

	s.logger.Info("content flagged",
		slog.String("id", flag.ID),
		slog.String("target_type", string(target)),
		slog.String("target", targetID),
		slog.String("by", caller.ID),
	)
	return flag, nil
}

// List returns flags matching filter, newest first. An empty TargetType
// matches both kinds.
func (s *FlagService) List(ctx context.Context, filter repository.FlagFilter) ([]model.Flag, error) {
	if err := validate.Var("type", string(filter.TargetType), "omitempty,"+targetRule); err != nil {
		return nil, err
	}

	flags, err := s.flags.ListFlags(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list flags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	return flags, nil
}
