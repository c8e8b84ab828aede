package policy

import (
	"bytes"
	"context"
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
	"github.com/jwalitptl/access-policy/internal/policy"
	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
	"github.com/jwalitptl/access-policy/pkg/i18n"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) EvaluateUser(ctx context.Context, userID uuid.UUID, mode policy.Mode) (*policy.Decision, error) {
	args := m.Called(ctx, userID, mode)
	d, _ := args.Get(0).(*policy.Decision)
	return d, args.Error(1)
}

func (m *mockService) CreatePolicy(ctx context.Context, req *model.CreatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

func (m *mockService) GetPolicy(ctx context.Context, id uuid.UUID) (*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

func (m *mockService) UpdatePolicy(ctx context.Context, id uuid.UUID, req *model.UpdatePasswordExpiryPolicyRequest) (*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx, id, req)
	p, _ := args.Get(0).(*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

func (m *mockService) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) ListPolicies(ctx context.Context) ([]*model.PasswordExpiryPolicy, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*model.PasswordExpiryPolicy)
	return p, args.Error(1)
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func setupRouter(t *testing.T) (*gin.Engine, *mockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := i18n.NewCatalog()
	require.NoError(t, catalog.Load(policy.Translations))

	svc := new(mockService)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	r := gin.New()
	NewHandler(svc, catalog).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func doRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func expiredDecision() *policy.Decision {
	msg := policy.NewMessage(policy.MsgPasswordExpiredDaysAgo, "15")
	return &policy.Decision{
		Passed:   false,
		Mode:     policy.ModeAll,
		Messages: []policy.Message{*msg},
		Results: []policy.RuleResult{{
			Policy: "quarterly",
			Result: policy.Fail(msg),
		}},
	}
}

func TestEvaluateUser_RendersMessages(t *testing.T) {
	r, svc := setupRouter(t)
	userID := uuid.New()

	svc.On("EvaluateUser", mock.Anything, userID, policy.Mode("")).Return(expiredDecision(), nil)

	w, resp := doRequest(r, http.MethodPost, "/api/v1/users/"+userID.String()+"/policies/evaluate", nil,
		map[string]string{"Accept-Language": "de-DE,de;q=0.9,en;q=0.8"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Status)

	var view DecisionView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.False(t, view.Passed)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "Das Passwort ist vor 15 Tagen abgelaufen. Bitte aktualisieren Sie Ihr Passwort.", view.Messages[0])
	require.Len(t, view.Results, 1)
	assert.Equal(t, "quarterly", view.Results[0].Policy)
}

func TestEvaluateUser_ModeQuery(t *testing.T) {
	r, svc := setupRouter(t)
	userID := uuid.New()

	svc.On("EvaluateUser", mock.Anything, userID, policy.ModeWeighted).
		Return(&policy.Decision{Passed: true, Mode: policy.ModeWeighted, Score: 1}, nil)

	w, resp := doRequest(r, http.MethodPost, "/api/v1/users/"+userID.String()+"/policies/evaluate?mode=WEIGHTED", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var view DecisionView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, policy.ModeWeighted, view.Mode)
	assert.Equal(t, 1.0, view.Score)
}

func TestEvaluateUser_BadInput(t *testing.T) {
	r, _ := setupRouter(t)

	w, resp := doRequest(r, http.MethodPost, "/api/v1/users/not-a-uuid/policies/evaluate", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid user ID", resp.Message)

	w, resp = doRequest(r, http.MethodPost, "/api/v1/users/"+uuid.NewString()+"/policies/evaluate?mode=majority", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid mode", resp.Message)
}

func TestEvaluateUser_StorageFailureKeepsDecision(t *testing.T) {
	r, svc := setupRouter(t)
	userID := uuid.New()

	svc.On("EvaluateUser", mock.Anything, userID, policy.Mode("")).
		Return(expiredDecision(), apperrors.Storage(errors.New("connection refused")))

	w, resp := doRequest(r, http.MethodPost, "/api/v1/users/"+userID.String()+"/policies/evaluate", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", resp.Status)
	var view DecisionView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.False(t, view.Passed)
	assert.Equal(t, []string{"Password expired 15 days ago. Please update your password."}, view.Messages)
}

func TestEvaluateUser_UserNotFound(t *testing.T) {
	r, svc := setupRouter(t)
	userID := uuid.New()

	svc.On("EvaluateUser", mock.Anything, userID, policy.Mode("")).Return(nil, apperrors.NotFound("user", nil))

	w, resp := doRequest(r, http.MethodPost, "/api/v1/users/"+userID.String()+"/policies/evaluate", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", resp.Message)
}

func TestPolicyCRUD(t *testing.T) {
	r, svc := setupRouter(t)

	created := &model.PasswordExpiryPolicy{Name: "quarterly", Days: 90, Weight: 1, Enabled: true}
	created.ID = uuid.New()
	base := "/api/v1/policies/password-expiry"

	svc.On("CreatePolicy", mock.Anything, mock.MatchedBy(func(req *model.CreatePasswordExpiryPolicyRequest) bool {
		return req.Name == "quarterly" && req.Days == 90
	})).Return(created, nil)
	w, resp := doRequest(r, http.MethodPost, base, map[string]interface{}{"name": "quarterly", "days": 90}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var got model.PasswordExpiryPolicy
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, created.ID, got.ID)

	svc.On("GetPolicy", mock.Anything, created.ID).Return(created, nil)
	w, _ = doRequest(r, http.MethodGet, base+"/"+created.ID.String(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.On("ListPolicies", mock.Anything).Return([]*model.PasswordExpiryPolicy{created}, nil)
	w, resp = doRequest(r, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.PasswordExpiryPolicy
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	svc.On("UpdatePolicy", mock.Anything, created.ID, mock.MatchedBy(func(req *model.UpdatePasswordExpiryPolicyRequest) bool {
		return req.Days != nil && *req.Days == 30 && req.Name == nil
	})).Return(created, nil)
	w, _ = doRequest(r, http.MethodPut, base+"/"+created.ID.String(), map[string]interface{}{"days": 30}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.On("DeletePolicy", mock.Anything, created.ID).Return(nil)
	w, _ = doRequest(r, http.MethodDelete, base+"/"+created.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPolicyHandler_Errors(t *testing.T) {
	r, svc := setupRouter(t)
	base := "/api/v1/policies/password-expiry"

	w, resp := doRequest(r, http.MethodGet, base+"/bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid policy ID", resp.Message)

	svc.On("CreatePolicy", mock.Anything, mock.Anything).
		Return(nil, apperrors.Configuration("days is a required field", policy.ErrConfiguration))
	w, resp = doRequest(r, http.MethodPost, base, map[string]interface{}{"name": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "days is a required field", resp.Message)

	id := uuid.New()
	svc.On("DeletePolicy", mock.Anything, id).Return(apperrors.NotFound("policy", nil))
	w, _ = doRequest(r, http.MethodDelete, base+"/"+id.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.On("ListPolicies", mock.Anything).Return(nil, errors.New("unexpected"))
	w, resp = doRequest(r, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", resp.Message)
}
