package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/repository/mocks"
	auditService "github.com/jwalitptl/access-policy/internal/service/audit"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.AuditRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := new(mocks.AuditRepository)
	t.Cleanup(func() { repo.AssertExpectations(t) })

	r := gin.New()
	NewHandler(auditService.NewService(repo)).RegisterRoutes(r.Group("/api/v1"))
	return r, repo
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListLogs_Filters(t *testing.T) {
	r, repo := setupRouter(t)
	userID := uuid.New()

	repo.On("List", mock.Anything, map[string]interface{}{
		"user_id":     userID,
		"entity_type": model.AuditEntityPolicy,
		"action":      model.AuditActionCreate,
	}).Return([]*model.AuditLog{{ID: uuid.New(), Action: model.AuditActionCreate}}, nil)

	w := get(r, "/api/v1/audit/logs?user_id="+userID.String()+"&entity_type=policy&action=create")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status string           `json:"status"`
		Data   []model.AuditLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Data, 1)
}

func TestGetUserLogs(t *testing.T) {
	r, repo := setupRouter(t)
	userID := uuid.New()

	repo.On("List", mock.Anything, map[string]interface{}{"user_id": userID}).Return([]*model.AuditLog{}, nil)

	w := get(r, "/api/v1/audit/logs/user/"+userID.String())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditHandler_Errors(t *testing.T) {
	r, repo := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/audit/logs?user_id=nope").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/audit/logs/user/nope").Code)

	repo.On("List", mock.Anything, map[string]interface{}{}).Return(nil, errors.New("down"))
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/api/v1/audit/logs").Code)
}
