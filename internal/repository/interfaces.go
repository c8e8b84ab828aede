package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/access-policy/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	// UserRepository is the subject store the policy layer reads and writes
	// through. Implementations own their concurrency control.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		Save(ctx context.Context, user *model.User) error
	}

	PolicyRepository interface {
		Create(ctx context.Context, policy *model.PasswordExpiryPolicy) error
		Get(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error)
		Update(ctx context.Context, policy *model.PasswordExpiryPolicy) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.PasswordExpiryPolicy, error)
		// ListEnabled returns enabled policies ordered by their order column.
		ListEnabled(ctx context.Context) ([]*model.PasswordExpiryPolicy, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}
)
