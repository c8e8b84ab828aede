// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/access-policy/internal/model"
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

type PolicyRepository struct {
	mock.Mock
}

func (m *PolicyRepository) Create(ctx context.Context, policy *model.PasswordExpiryPolicy) error {
	return m.Called(ctx, policy).Error(0)
}

func (m *PolicyRepository) Get(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

func (m *PolicyRepository) Update(ctx context.Context, policy *model.PasswordExpiryPolicy) error {
	return m.Called(ctx, policy).Error(0)
}

func (m *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PolicyRepository) List(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

func (m *PolicyRepository) ListEnabled(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	args := m.Called(ctx, filters)
	logs, _ := args.Get(0).([]*model.AuditLog)
	return logs, args.Error(1)
}

func (m *AuditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// Publisher records published messages.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}
