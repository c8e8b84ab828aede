package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-policy/internal/model"
)

func TestAuditRepository_Create(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewAuditRepository(base)

	log := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Action:     model.AuditActionEvaluate,
		EntityType: model.AuditEntityUser,
		EntityID:   uuid.New(),
		Metadata:   json.RawMessage(`{"passed":false}`),
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(log.ID, log.UserID, log.Action, log.EntityType, log.EntityID,
			nil, []byte(`{"passed":false}`), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), log))
}

func TestAuditRepository_ListFilters(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewAuditRepository(base)

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("AND user_id = $1 AND action = $2 ORDER BY created_at DESC")).
		WithArgs(userID, model.AuditActionEvaluate).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "action", "entity_type", "entity_id", "changes", "metadata",
			"ip_address", "user_agent", "created_at",
		}).AddRow(uuid.NewString(), userID.String(), model.AuditActionEvaluate, model.AuditEntityUser, userID.String(),
			nil, []byte(`{"passed":true}`), "10.0.0.1", "curl", time.Now()))

	logs, err := repo.List(context.Background(), map[string]interface{}{
		"user_id": userID,
		"action":  model.AuditActionEvaluate,
	})

	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"passed":true}`, string(logs[0].Metadata))
}

func TestAuditRepository_Cleanup(t *testing.T) {
	base, mock := newMockDB(t)
	repo := NewAuditRepository(base)

	cutoff := time.Now().AddDate(0, 0, -90)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_logs")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	rows, err := repo.Cleanup(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), rows)
}
