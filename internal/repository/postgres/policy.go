package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/repository"
)

const policyColumns = `id, name, days, deny_only, negate, eval_order, weight, enabled,
			created_at, updated_at, deleted_at`

type policyRepository struct {
	BaseRepository
}

func NewPolicyRepository(base BaseRepository) repository.PolicyRepository {
	return &policyRepository{base}
}

func (r *policyRepository) Create(ctx context.Context, policy *model.PasswordExpiryPolicy) error {
	query := `
		INSERT INTO password_expiry_policies (
			id, name, days, deny_only, negate, eval_order, weight, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	policy.ID = uuid.New()
	policy.Touch(time.Now())

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			policy.ID,
			policy.Name,
			policy.Days,
			policy.DenyOnly,
			policy.Negate,
			policy.Order,
			policy.Weight,
			policy.Enabled,
			policy.CreatedAt,
			policy.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create policy: %w", err)
		}
		return nil
	})
}

func (r *policyRepository) Get(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error) {
	query := `SELECT ` + policyColumns + `
		FROM password_expiry_policies
		WHERE id = $1 AND deleted_at IS NULL
	`

	var policy model.PasswordExpiryPolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return &policy, nil
}

func (r *policyRepository) Update(ctx context.Context, policy *model.PasswordExpiryPolicy) error {
	query := `
		UPDATE password_expiry_policies SET
			name = $1,
			days = $2,
			deny_only = $3,
			negate = $4,
			eval_order = $5,
			weight = $6,
			enabled = $7,
			updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`

	policy.Touch(time.Now())
	result, err := r.db.ExecContext(ctx, query,
		policy.Name,
		policy.Days,
		policy.DenyOnly,
		policy.Negate,
		policy.Order,
		policy.Weight,
		policy.Enabled,
		policy.UpdatedAt,
		policy.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE password_expiry_policies
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *policyRepository) List(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	query := `SELECT ` + policyColumns + `
		FROM password_expiry_policies
		WHERE deleted_at IS NULL
		ORDER BY eval_order ASC, created_at ASC
	`

	var policies []*model.PasswordExpiryPolicy
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	return policies, nil
}

func (r *policyRepository) ListEnabled(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	query := `SELECT ` + policyColumns + `
		FROM password_expiry_policies
		WHERE deleted_at IS NULL AND enabled = TRUE
		ORDER BY eval_order ASC, created_at ASC
	`

	var policies []*model.PasswordExpiryPolicy
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to list enabled policies: %w", err)
	}

	return policies, nil
}
