package videos

import (
	"errors"
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
	rg.POST("/videos", h.upload)
	rg.GET("/videos", h.list)
	rg.GET("/videos/:id", h.get)
	rg.DELETE("/videos/:id", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if c.Request.ContentLength > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "video exceeds the 100MB limit", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file field is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return
	}
	defer file.Close()

	if header.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "video exceeds the 100MB limit", nil)
		return
	}

	title := c.PostForm("title")
	contentType := header.Header.Get("Content-Type")

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	result, err := h.Svc.Upload(ctx, userID, header.Filename, title, contentType, header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file name is required", nil)
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusBadRequest, "unsupported_type", "only mp4, webm, and quicktime videos are accepted", nil)
		case errors.Is(err, ErrQuotaExceeded):
			respond.Error(c, http.StatusForbidden, "quota_exceeded", "plan quota exceeded", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store video", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, result)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list videos", nil)
		return
	}
	if items == nil {
		items = []Video{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"videos": items})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	video, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "video not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch video", nil)
		return
	}
	respond.JSON(c, http.StatusOK, video)
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "video not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete video", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
