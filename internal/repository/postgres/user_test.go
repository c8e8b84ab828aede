package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/repository"
)

var userColumns = []string{
	"id", "organization_id", "email", "name", "password_hash", "password_change_date",
	"status", "preferred_language", "created_at", "updated_at", "deleted_at",
}

func TestUserRepository_Get(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserRepository(base)

	id := uuid.New()
	changed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			id.String(), uuid.NewString(), "jane@example.com", "Jane", "hash", changed,
			model.UserStatusActive, "de", changed, changed, nil,
		))

	user, err := repo.Get(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	require.NotNil(t, user.PasswordChangeDate)
	assert.True(t, changed.Equal(*user.PasswordChangeDate))
	assert.Equal(t, "de", user.PreferredLanguage)
}

func TestUserRepository_GetNullChangeDate(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserRepository(base)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			id.String(), uuid.NewString(), "jane@example.com", "Jane", "hash", nil,
			model.UserStatusActive, "en", now, now, nil,
		))

	user, err := repo.Get(context.Background(), id)

	require.NoError(t, err)
	assert.Nil(t, user.PasswordChangeDate)
}

func TestUserRepository_GetNotFound(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserRepository(base)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Save(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewUserRepository(base)

	user := &model.User{PasswordHash: "!abc", Status: model.UserStatusActive}
	user.ID = uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WithArgs("!abc", model.UserStatusActive, sqlmock.AnyArg(), user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), user))
	assert.False(t, user.UpdatedAt.IsZero())
}

func TestUserRepository_SaveErrors(t *testing.T) {
	t.Run("missing row", func(t *testing.T) {
		base, mock := newMockDB(t)
		repo := NewUserRepository(base)
		user := &model.User{}
		user.ID = uuid.New()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), user), repository.ErrNotFound)
	})

	t.Run("driver error", func(t *testing.T) {
		base, mock := newMockDB(t)
		repo := NewUserRepository(base)
		user := &model.User{}
		user.ID = uuid.New()

		cause := errors.New("connection reset")
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WillReturnError(cause)

		assert.ErrorIs(t, repo.Save(context.Background(), user), cause)
	})
}
