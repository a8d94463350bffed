package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/repository"
	"github.com/sakif/articles-api/internal/repository/sqlite"
)

var (
	alice = model.Identity{ID: "user-alice", FirstName: "Alice", LastName: "Ng"}
	bob   = model.Identity{ID: "user-bob", FirstName: "Bob", LastName: "Roe"}
	admin = model.Identity{ID: "user-admin", FirstName: "Ada", LastName: "Min", IsAdmin: true}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type services struct {
	articles *ArticleService
	flags    *FlagService
}

func newTestServices(t *testing.T) services {
	t.Helper()
	store := newTestStore(t)
	sanitizer := NewSanitizer()
	return services{
		articles: NewArticleService(store, sanitizer, discardLogger()),
		flags:    NewFlagService(store, sanitizer, discardLogger()),
	}
}

// mockStore is a testify mock of every repository interface, used where a
// test needs the store itself to fail.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateArticle(ctx context.Context, a *model.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Article)
	return a, args.Error(1)
}

func (m *mockStore) ListArticles(ctx context.Context) ([]model.Article, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).([]model.Article)
	return a, args.Error(1)
}

func (m *mockStore) UpdateArticle(ctx context.Context, id, title, body string) (*model.Article, error) {
	args := m.Called(ctx, id, title, body)
	a, _ := args.Get(0).(*model.Article)
	return a, args.Error(1)
}

func (m *mockStore) DeleteArticle(ctx context.Context, id string, caller model.Identity) (repository.DeleteOutcome, error) {
	args := m.Called(ctx, id, caller)
	return args.Get(0).(repository.DeleteOutcome), args.Error(1)
}

func (m *mockStore) CreateComment(ctx context.Context, c *model.Comment) (*model.Article, error) {
	args := m.Called(ctx, c)
	a, _ := args.Get(0).(*model.Article)
	return a, args.Error(1)
}

func (m *mockStore) ListComments(ctx context.Context, articleID string) ([]model.Comment, error) {
	args := m.Called(ctx, articleID)
	c, _ := args.Get(0).([]model.Comment)
	return c, args.Error(1)
}

func (m *mockStore) CreateFlag(ctx context.Context, f *model.Flag) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockStore) ListFlags(ctx context.Context, filter repository.FlagFilter) ([]model.Flag, error) {
	args := m.Called(ctx, filter)
	f, _ := args.Get(0).([]model.Flag)
	return f, args.Error(1)
}

func (m *mockStore) CreateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}
