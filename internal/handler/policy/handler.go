package policy

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-policy/internal/model"
	"github.com/jwalitptl/access-policy/internal/policy"
	policyService "github.com/jwalitptl/access-policy/internal/service/policy"
	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
	"github.com/jwalitptl/access-policy/pkg/httputil"
	"github.com/jwalitptl/access-policy/pkg/i18n"
)

type Handler struct {
	service policyService.PolicyServicer
	catalog *i18n.Catalog
}

func NewHandler(service policyService.PolicyServicer, catalog *i18n.Catalog) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies/password-expiry")
	{
		policies.POST("", h.CreatePolicy)
		policies.GET("", h.ListPolicies)
		policies.GET("/:id", h.GetPolicy)
		policies.PUT("/:id", h.UpdatePolicy)
		policies.DELETE("/:id", h.DeletePolicy)
	}

	r.POST("/users/:id/policies/evaluate", h.EvaluateUser)
}

// RuleView is one rendered rule outcome.
type RuleView struct {
	Policy     string           `json:"policy"`
	Passed     bool             `json:"passed"`
	Message    string           `json:"message,omitempty"`
	ErrorKind  policy.ErrorKind `json:"error_kind,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	Cached     bool             `json:"cached,omitempty"`
}

// DecisionView is a decision with messages rendered for the caller.
type DecisionView struct {
	Passed   bool        `json:"passed"`
	Mode     policy.Mode `json:"mode"`
	Score    float64     `json:"score,omitempty"`
	Messages []string    `json:"messages,omitempty"`
	Results  []RuleView  `json:"results"`
}

func (h *Handler) EvaluateUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user ID", err))
		return
	}

	// An empty mode leaves the choice to the service default.
	var mode policy.Mode
	if q := c.Query("mode"); q != "" {
		if mode, err = policy.ParseMode(q); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid mode", err))
			return
		}
	}

	decision, err := h.service.EvaluateUser(c.Request.Context(), userID, mode)
	if decision == nil {
		httputil.RespondWithError(c, err)
		return
	}

	view := h.render(i18n.FromAcceptLanguage(c.GetHeader("Accept-Language")), decision)
	if err != nil {
		// The decision is complete but a credential change was not persisted;
		// the caller may retry.
		httputil.RespondWithErrorData(c, err, view)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, view)
}

func (h *Handler) render(locale string, d *policy.Decision) *DecisionView {
	view := &DecisionView{
		Passed:  d.Passed,
		Mode:    d.Mode,
		Score:   d.Score,
		Results: make([]RuleView, 0, len(d.Results)),
	}
	for _, m := range d.Messages {
		view.Messages = append(view.Messages, h.catalog.Render(locale, m.ID, m.Params...))
	}
	for _, rr := range d.Results {
		rv := RuleView{
			Policy:     rr.Policy,
			Passed:     rr.Result.Passed,
			ErrorKind:  rr.Result.ErrorKind,
			DurationMS: rr.Duration.Milliseconds(),
			Cached:     rr.Cached,
		}
		if rr.Result.Message != nil {
			rv.Message = h.catalog.Render(locale, rr.Result.Message.ID, rr.Result.Message.Params...)
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

func (h *Handler) CreatePolicy(c *gin.Context) {
	var req model.CreatePasswordExpiryPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	p, err := h.service.CreatePolicy(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, p)
}

func (h *Handler) GetPolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.service.GetPolicy(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) ListPolicies(c *gin.Context) {
	policies, err := h.service.ListPolicies(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, policies)
}

func (h *Handler) UpdatePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdatePasswordExpiryPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	p, err := h.service.UpdatePolicy(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) DeletePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePolicy(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid policy ID", err))
		return uuid.Nil, false
	}
	return id, true
}
