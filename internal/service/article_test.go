package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
)

// =========================================================================
// CREATE / READ
// =========================================================================

func TestCreate_AuthorComesFromCaller(t *testing.T) {
	svc := newTestServices(t).articles

	article, err := svc.Create(context.Background(), alice, "  My first  ", "Hello there")
	require.NoError(t, err)

	assert.NotEmpty(t, article.ID)
	assert.Equal(t, alice.ID, article.AuthorID)
	assert.Equal(t, "Alice Ng", article.AuthorName)
	assert.Equal(t, "  My first  ", article.Title, "text is stored as sent")
	assert.False(t, article.CreatedOn.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestServices(t).articles

	cases := []struct {
		name, title, body, field string
	}{
		{"missing title", "", "body", "title"},
		{"blank title", "   ", "body", "title"},
		{"missing body", "title", "", "article"},
		{"title too long", strings.Repeat("t", MaxTitleLength+1), "body", "title"},
		{"only markup", "<script>alert(1)</script>", "body", "title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, tc.title, tc.body)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.field, appErr.Field)
		})
	}
}

func TestCreate_SanitizesMarkup(t *testing.T) {
	svc := newTestServices(t).articles

	article, err := svc.Create(context.Background(), alice, "Tom & Jerry's", `<p onclick="x()">Hi</p><script>bad()</script>`)
	require.NoError(t, err)

	assert.Equal(t, "Tom & Jerry's", article.Title, "plain text is stored untouched")
	assert.Equal(t, "<p>Hi</p>", article.Body)
}

func TestCreate_KeepsPlainTextWithAngleBrackets(t *testing.T) {
	svc := newTestServices(t).articles

	article, err := svc.Create(context.Background(), alice, "Math", "1 < 2 & it's true")
	require.NoError(t, err)
	assert.Equal(t, "1 < 2 & it's true", article.Body)

	article, err = svc.Create(context.Background(), alice, "Markup", "<b>bold</b> & \"quoted\"")
	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b> & \"quoted\"", article.Body, "allowed markup is not re-escaped")
}

func TestGet_ReturnsCommentsInOrder(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()

	article, err := svc.Create(ctx, alice, "Title", "Body")
	require.NoError(t, err)
	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.CreateComment(ctx, bob, article.ID, text)
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, article.ID)
	require.NoError(t, err)

	assert.Equal(t, article.ID, got.Article.ID)
	require.Len(t, got.Comments, 3)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, "third", got.Comments[2].Text)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestServices(t).articles

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Article not found")
}

func TestList_NewestFirst(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()

	first, err := svc.Create(ctx, alice, "one", "b")
	require.NoError(t, err)
	second, err := svc.Create(ctx, bob, "two", "b")
	require.NoError(t, err)

	articles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, second.ID, articles[0].ID)
	assert.Equal(t, first.ID, articles[1].ID)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_BlankFieldsKeepCurrentValues(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()

	article, err := svc.Create(ctx, alice, "Original", "Original body")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, article.ID, "", "New body")
	require.NoError(t, err)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, "New body", updated.Body)

	updated, err = svc.Update(ctx, article.ID, "New title", "   ")
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "New body", updated.Body)

	assert.Equal(t, article.AuthorID, updated.AuthorID)
	assert.WithinDuration(t, article.CreatedOn, updated.CreatedOn, 0)
}

func TestUpdate_AnyCallerMayEdit(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()

	article, err := svc.Create(ctx, alice, "Alice's", "body")
	require.NoError(t, err)

	// Update takes no caller: non-authors can edit.
	updated, err := svc.Update(ctx, article.ID, "Edited by Bob", "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, updated.AuthorID)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestServices(t).articles

	_, err := svc.Update(context.Background(), "missing", "t", "b")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("author deletes own article", func(t *testing.T) {
		svc := newTestServices(t).articles
		article, err := svc.Create(ctx, alice, "t", "b")
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, alice, article.ID))

		_, err = svc.Get(ctx, article.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("other user is not authorized", func(t *testing.T) {
		svc := newTestServices(t).articles
		article, err := svc.Create(ctx, alice, "t", "b")
		require.NoError(t, err)

		err = svc.Delete(ctx, bob, article.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.EqualError(t, err, MsgNotAuthorized)
	})

	t.Run("admin cannot delete unflagged article", func(t *testing.T) {
		svc := newTestServices(t).articles
		article, err := svc.Create(ctx, alice, "t", "b")
		require.NoError(t, err)

		err = svc.Delete(ctx, admin, article.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.EqualError(t, err, MsgUnflaggedArticle)
	})

	t.Run("admin deletes flagged article", func(t *testing.T) {
		s := newTestServices(t)
		article, err := s.articles.Create(ctx, alice, "t", "b")
		require.NoError(t, err)
		_, err = s.flags.Flag(ctx, bob, model.FlagTargetArticle, article.ID, "spam")
		require.NoError(t, err)

		require.NoError(t, s.articles.Delete(ctx, admin, article.ID))

		flags, err := s.flags.List(ctx, repository.FlagFilter{TargetID: article.ID})
		require.NoError(t, err)
		assert.Empty(t, flags, "flags go with the article")
	})

	t.Run("missing article", func(t *testing.T) {
		svc := newTestServices(t).articles

		err := svc.Delete(ctx, alice, "ghost")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

// =========================================================================
// COMMENTS
// =========================================================================

func TestCreateComment(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()

	article, err := svc.Create(ctx, alice, "Title", "Body")
	require.NoError(t, err)

	posted, err := svc.CreateComment(ctx, bob, article.ID, "Great read")
	require.NoError(t, err)

	assert.Equal(t, "Title", posted.ArticleTitle)
	assert.Equal(t, "Body", posted.ArticleBody)
	assert.Equal(t, bob.ID, posted.Comment.AuthorID)
	assert.Equal(t, article.ID, posted.Comment.ArticleID)
	assert.NotEmpty(t, posted.Comment.ID)
}

func TestCreateComment_Empty(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()
	article, err := svc.Create(ctx, alice, "Title", "Body")
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "<script></script>"} {
		_, err := svc.CreateComment(ctx, bob, article.ID, text)
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.EqualError(t, err, MsgNothingWritten)
	}
}

func TestCreateComment_DuplicateIsCaseSensitive(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()
	article, err := svc.Create(ctx, alice, "Title", "Body")
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, bob, article.ID, "nice")
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, alice, article.ID, "nice")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.EqualError(t, err, "Comment already exists")

	_, err = svc.CreateComment(ctx, alice, article.ID, "Nice")
	assert.NoError(t, err)

	_, err = svc.CreateComment(ctx, alice, article.ID, "  nice  ")
	assert.NoError(t, err, "surrounding whitespace makes the text different")
}

func TestCreateComment_EscapedAndRawTextAreDistinct(t *testing.T) {
	svc := newTestServices(t).articles
	ctx := context.Background()
	article, err := svc.Create(ctx, alice, "Title", "Body")
	require.NoError(t, err)

	raw, err := svc.CreateComment(ctx, bob, article.ID, "1 < 2 & that's fine")
	require.NoError(t, err)
	assert.Equal(t, "1 < 2 & that's fine", raw.Comment.Text)

	escaped, err := svc.CreateComment(ctx, bob, article.ID, "1 &lt; 2 &amp; that&#39;s fine")
	require.NoError(t, err, "different text is not a duplicate")
	assert.Equal(t, "1 &lt; 2 &amp; that&#39;s fine", escaped.Comment.Text)

	got, err := svc.Get(ctx, article.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 2)
}

func TestCreateComment_ArticleMissing(t *testing.T) {
	svc := newTestServices(t).articles

	_, err := svc.CreateComment(context.Background(), bob, "missing", "hello")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// STORE FAILURES
// =========================================================================

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	store := &mockStore{}
	store.On("ListArticles", mock.Anything).Return(nil, boom)
	store.On("CreateArticle", mock.Anything, mock.AnythingOfType("*model.Article")).Return(boom)
	store.On("GetArticle", mock.Anything, "a1").Return(nil, boom)
	store.On("DeleteArticle", mock.Anything, "a1", alice).Return(repository.DeleteOutcome{}, boom)
	svc := NewArticleService(store, NewSanitizer(), discardLogger())

	_, err := svc.List(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = svc.Create(ctx, alice, "t", "b")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Get(ctx, "a1")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "disk I/O error")

	err = svc.Delete(ctx, alice, "a1")
	assert.ErrorIs(t, err, boom)

	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr), "store failures are not domain errors")
	store.AssertExpectations(t)
}

func TestGet_CommentListingFails(t *testing.T) {
	boom := errors.New("connection reset")
	store := &mockStore{}
	store.On("GetArticle", mock.Anything, "a1").Return(&model.Article{ID: "a1"}, nil)
	store.On("ListComments", mock.Anything, "a1").Return(nil, boom)
	svc := NewArticleService(store, NewSanitizer(), discardLogger())

	_, err := svc.Get(context.Background(), "a1")
	assert.ErrorIs(t, err, boom)
	store.AssertExpectations(t)
}
