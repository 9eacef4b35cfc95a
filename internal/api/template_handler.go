package api

import (
	"net/http"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/service"

	"github.com/gin-gonic/gin"
)

// TemplateHandler handles reusable week templates.
type TemplateHandler struct {
	store *service.EntityStore
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(store *service.EntityStore) *TemplateHandler {
	return &TemplateHandler{store: store}
}

// --- DTOs ---

// CreateTemplateRequest carries either an explicit week or the id of a
// client whose current week should be copied.
type CreateTemplateRequest struct {
	Name         string                       `json:"name" binding:"required"`
	Description  string                       `json:"description"`
	Workout      map[int][]domain.WorkoutItem `json:"workout"`
	FromClientID string                       `json:"fromClientId"`
}

// CreateTemplate godoc
// @Summary Save a week as a template
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body CreateTemplateRequest true "Template"
// @Success 201 {object} domain.Template
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Source client not found"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	week := req.Workout
	if req.FromClientID != "" {
		client, ok := h.store.GetClient(req.FromClientID)
		if !ok {
			abortWithServiceError(c, service.ErrClientNotFound)
			return
		}
		week = client.Plans.Workouts
	}

	tpl, err := h.store.SaveTemplate(c.Request.Context(), req.Name, req.Description, week)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// ListTemplates returns every template, newest first.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Templates())
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.store.DeleteTemplate(c.Request.Context(), c.Param("templateId")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
