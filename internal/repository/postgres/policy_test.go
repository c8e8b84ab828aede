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

var policyRowColumns = []string{
	"id", "name", "days", "deny_only", "negate", "eval_order", "weight", "enabled",
	"created_at", "updated_at", "deleted_at",
}

func TestPolicyRepository_Create(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	p := &model.PasswordExpiryPolicy{Name: "quarterly", Days: 90, Weight: 1, Enabled: true}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO password_expiry_policies")).
		WithArgs(sqlmock.AnyArg(), "quarterly", 90, false, false, 0, 1.0, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestPolicyRepository_CreateRollsBack(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO password_expiry_policies")).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.PasswordExpiryPolicy{Name: "dup", Days: 1})
	assert.Error(t, err)
}

func TestPolicyRepository_Get(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM password_expiry_policies")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(policyRowColumns).
			AddRow(id.String(), "quarterly", 90, true, false, 2, 0.5, true, now, now, nil))

	p, err := repo.Get(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "quarterly", p.Name)
	assert.Equal(t, 90, p.Days)
	assert.True(t, p.DenyOnly)
	assert.Equal(t, 2, p.Order)
	assert.Equal(t, 0.5, p.Weight)
}

func TestPolicyRepository_GetNotFound(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM password_expiry_policies")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPolicyRepository_Update(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	p := &model.PasswordExpiryPolicy{Name: "monthly", Days: 30, Enabled: true, Weight: 1}
	p.ID = uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_expiry_policies SET")).
		WithArgs("monthly", 30, false, false, 0, 1.0, true, sqlmock.AnyArg(), p.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), p))
}

func TestPolicyRepository_DeleteNotFound(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("SET deleted_at = NOW()")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), repository.ErrNotFound)
}

func TestPolicyRepository_ListEnabled(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewPolicyRepository(base)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("enabled = TRUE") + ".*" + regexp.QuoteMeta("ORDER BY eval_order ASC")).
		WillReturnRows(sqlmock.NewRows(policyRowColumns).
			AddRow(uuid.NewString(), "first", 30, false, false, 0, 1.0, true, now, now, nil).
			AddRow(uuid.NewString(), "second", 90, true, true, 1, 2.0, true, now, now, nil))

	policies, err := repo.ListEnabled(context.Background())

	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "first", policies[0].Name)
	assert.True(t, policies[1].Negate)
}
