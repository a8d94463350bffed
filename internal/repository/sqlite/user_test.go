package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/model"
)

func TestCreateUser_AndLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{FirstName: "Ada", LastName: "Min", Email: "ada@example.com", PasswordHash: "hash", IsAdmin: true}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	byEmail, err := db.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.True(t, byEmail.IsAdmin)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, &model.User{FirstName: "A", LastName: "B", Email: "dup@example.com", PasswordHash: "h"}))
	err := db.CreateUser(ctx, &model.User{FirstName: "C", LastName: "D", Email: "dup@example.com", PasswordHash: "h"})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
