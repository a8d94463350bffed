package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
)

func TestCreateArticle(t *testing.T) {
	db := newTestDB(t)
	a := createTestArticle(t, db, alice, "Hello")

	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedOn.IsZero())

	found, err := db.GetArticle(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", found.Title)
	assert.Equal(t, "body of Hello", found.Body)
	assert.Equal(t, alice.ID, found.AuthorID)
	assert.Equal(t, "Alice Ng", found.AuthorName)
	assert.WithinDuration(t, a.CreatedOn, found.CreatedOn, time.Millisecond)
}

func TestGetArticle_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetArticle(context.Background(), "nonexistent-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListArticles_Empty(t *testing.T) {
	db := newTestDB(t)

	articles, err := db.ListArticles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, articles, "empty list should encode as [] not null")
	assert.Len(t, articles, 0)
}

func TestListArticles_NewestFirstRegardlessOfInsertOrder(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of chronological order on purpose.
	createTestArticleAt(t, db, "middle", base.Add(time.Hour))
	createTestArticleAt(t, db, "oldest", base)
	createTestArticleAt(t, db, "newest", base.Add(2*time.Hour))

	articles, err := db.ListArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, "newest", articles[0].Title)
	assert.Equal(t, "middle", articles[1].Title)
	assert.Equal(t, "oldest", articles[2].Title)
}

func TestUpdateArticle_MergesBlankFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestArticle(t, db, alice, "Original")

	updated, err := db.UpdateArticle(ctx, a.ID, "Renamed", "")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "body of Original", updated.Body, "blank body must keep the stored value")

	updated, err = db.UpdateArticle(ctx, a.ID, "", "new body")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title, "blank title must keep the stored value")
	assert.Equal(t, "new body", updated.Body)

	// Immutable fields survive.
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, alice.ID, updated.AuthorID)
	assert.WithinDuration(t, a.CreatedOn, updated.CreatedOn, time.Millisecond)
}

func TestUpdateArticle_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpdateArticle(context.Background(), "nonexistent", "t", "b")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteArticle_AuthorSucceedsWithoutFlags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestArticle(t, db, alice, "mine")

	out, err := db.DeleteArticle(ctx, a.ID, alice)
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	_, err = db.GetArticle(ctx, a.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteArticle_Missing(t *testing.T) {
	db := newTestDB(t)

	out, err := db.DeleteArticle(context.Background(), "nope", alice)
	require.NoError(t, err)
	assert.False(t, out.Deleted)
	assert.False(t, out.Exists)
}

func TestDeleteArticle_OtherUserDeniedEvenWhenFlagged(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestArticle(t, db, alice, "flagged")
	require.NoError(t, db.CreateFlag(ctx, &model.Flag{TargetType: model.FlagTargetArticle, TargetID: a.ID, FlaggedBy: admin.ID}))

	out, err := db.DeleteArticle(ctx, a.ID, bob)
	require.NoError(t, err)
	assert.False(t, out.Deleted)
	assert.True(t, out.Exists)
	assert.Equal(t, 1, out.Flags)
}

func TestDeleteArticle_AdminNeedsFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestArticle(t, db, alice, "target")

	out, err := db.DeleteArticle(ctx, a.ID, admin)
	require.NoError(t, err)
	assert.False(t, out.Deleted, "admin must not delete an unflagged article")
	assert.True(t, out.Exists)
	assert.Equal(t, 0, out.Flags)

	require.NoError(t, db.CreateFlag(ctx, &model.Flag{TargetType: model.FlagTargetArticle, TargetID: a.ID, FlaggedBy: bob.ID, Reason: "spam"}))

	out, err = db.DeleteArticle(ctx, a.ID, admin)
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	flags, err := db.ListFlags(ctx, flagFilter(model.FlagTargetArticle, a.ID))
	require.NoError(t, err)
	assert.Empty(t, flags, "flags on a deleted article are removed with it")
}

func TestDeleteArticle_CascadesComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestArticle(t, db, alice, "with comments")

	c := &model.Comment{AuthorID: bob.ID, ArticleID: a.ID, Text: "first"}
	_, err := db.CreateComment(ctx, c)
	require.NoError(t, err)
	require.NoError(t, db.CreateFlag(ctx, &model.Flag{TargetType: model.FlagTargetComment, TargetID: c.ID, FlaggedBy: alice.ID}))

	out, err := db.DeleteArticle(ctx, a.ID, alice)
	require.NoError(t, err)
	require.True(t, out.Deleted)

	comments, err := db.ListComments(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	flags, err := db.ListFlags(ctx, flagFilter(model.FlagTargetComment, c.ID))
	require.NoError(t, err)
	assert.Empty(t, flags)
}
