package workflows

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"synchro-backend/internal/shared/server/middleware"
	"synchro-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workflows", h.list)
	rg.GET("/workflows/:id", h.get)
	rg.PATCH("/workflows/:id", h.rename)
	rg.DELETE("/workflows/:id", h.remove)
	rg.POST("/workflows/:id/migrate", h.migrate)
	rg.POST("/workflows/:id/share", h.share)
	rg.GET("/workflows/:id/steps/:seq/screenshot", h.screenshot)
	rg.GET("/teams/:id/workflows", h.listTeam)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list workflows", nil)
		return
	}
	if items == nil {
		items = []Workflow{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"workflows": items})
}

func (h *Handler) listTeam(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	owned, shared, err := h.Svc.ListTeam(c.Request.Context(), c.Param("id"), userID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "team not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list team workflows", nil)
		return
	}
	if owned == nil {
		owned = []Workflow{}
	}
	if shared == nil {
		shared = []Workflow{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"workflows": owned, "shared": shared})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	detail, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "workflow not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch workflow", nil)
		return
	}
	respond.JSON(c, http.StatusOK, detail)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *Handler) rename(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	w, err := h.Svc.Rename(c.Request.Context(), userID, c.Param("id"), req.Title)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "title is required", []map[string]string{
				{"field": "title", "issue": "required"},
			})
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "workflow not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to rename workflow", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, w)
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "workflow not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete workflow", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type teamTargetRequest struct {
	TeamID string `json:"teamId"`
}

func (h *Handler) migrate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req teamTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TeamID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "teamId is required", []map[string]string{
			{"field": "teamId", "issue": "required"},
		})
		return
	}

	w, err := h.Svc.MigrateToTeam(c.Request.Context(), userID, c.Param("id"), req.TeamID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "workflow not found", nil)
		case errors.Is(err, ErrOwnedByTeam):
			respond.Error(c, http.StatusConflict, "owned_by_team", "workflow already belongs to a team", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you must be a member of the target team", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to migrate workflow", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, w)
}

func (h *Handler) share(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req teamTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TeamID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "teamId is required", []map[string]string{
			{"field": "teamId", "issue": "required"},
		})
		return
	}

	share, err := h.Svc.Share(c.Request.Context(), userID, c.Param("id"), req.TeamID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "workflow not found", nil)
		case errors.Is(err, ErrOwnedByTeam):
			respond.Error(c, http.StatusConflict, "owned_by_team", "team workflows are visible to the team already", nil)
		case errors.Is(err, ErrAlreadyShared):
			respond.Error(c, http.StatusConflict, "already_shared", "workflow already shared with this team", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you must be a member of the target team", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to share workflow", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, share)
}

func (h *Handler) screenshot(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid step number", nil)
		return
	}

	reader, err := h.Svc.OpenScreenshot(c.Request.Context(), userID, c.Param("id"), seq)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "screenshot not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open screenshot", nil)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
