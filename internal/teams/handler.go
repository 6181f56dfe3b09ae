package teams

import (
	"errors"
	"net/http"

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
	rg.POST("/teams", h.createTeam)
	rg.GET("/teams", h.listTeams)
	rg.GET("/teams/:id/members", h.listMembers)
	rg.DELETE("/teams/:id", h.deleteTeam)
	rg.POST("/teams/:id/invites", h.invite)
	rg.POST("/invites/accept", h.acceptInvite)
}

func (h *Handler) requireUser(c *gin.Context) (string, bool) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return "", false
	}
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return "", false
	}
	return userID, true
}

type createTeamRequest struct {
	Name string `json:"name"`
}

func (h *Handler) createTeam(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	team, err := h.Svc.CreateTeam(c.Request.Context(), req.Name, userID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "team name is required", []map[string]string{
				{"field": "name", "issue": "required"},
			})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create team", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, team)
}

func (h *Handler) listTeams(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	teams, err := h.Svc.ListMyTeams(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list teams", nil)
		return
	}
	if teams == nil {
		teams = []Team{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"teams": teams})
}

func (h *Handler) listMembers(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	members, err := h.Svc.ListMembers(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "team not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list members", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"members": members})
}

func (h *Handler) deleteTeam(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	err := h.Svc.DeleteTeam(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "team not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "only the team owner can delete the team", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete team", nil)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) invite(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	inv, err := h.Svc.Invite(c.Request.Context(), c.Param("id"), userID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email is required", []map[string]string{
				{"field": "email", "issue": "invalid"},
			})
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "team not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create invite", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, inv)
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

func (h *Handler) acceptInvite(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invite token is required", []map[string]string{
			{"field": "token", "issue": "required"},
		})
		return
	}

	team, err := h.Svc.AcceptInvite(c.Request.Context(), req.Token, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInviteNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "invite not found", nil)
		case errors.Is(err, ErrInviteExpired):
			respond.Error(c, http.StatusGone, "invite_expired", "this invite has expired", nil)
		case errors.Is(err, ErrInviteAccepted):
			respond.Error(c, http.StatusConflict, "invite_accepted", "this invite was already used", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to accept invite", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, team)
}
