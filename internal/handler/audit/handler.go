package audit

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/access-policy/internal/model"
	apperrors "github.com/jwalitptl/access-policy/pkg/errors"
	"github.com/jwalitptl/access-policy/pkg/httputil"
)

// Lister is the read side of the audit service.
type Lister interface {
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
}

type Handler struct {
	service Lister
}

func NewHandler(service Lister) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/user/:id", h.GetUserLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters := map[string]interface{}{}
	if v := c.Query("user_id"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid user_id", err))
			return
		}
		filters["user_id"] = userID
	}
	if v := c.Query("entity_type"); v != "" {
		filters["entity_type"] = v
	}
	if v := c.Query("action"); v != "" {
		filters["action"] = v
	}

	h.list(c, filters)
}

func (h *Handler) GetUserLogs(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user_id", err))
		return
	}

	h.list(c, map[string]interface{}{"user_id": userID})
}

func (h *Handler) list(c *gin.Context, filters map[string]interface{}) {
	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Storage(err))
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, logs)
}
