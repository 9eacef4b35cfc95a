package api

import (
	"net/http"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/permission"
	"alcyxob/flexcoach/internal/service"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves client records, the active selection and plan edits.
type ClientHandler struct {
	store *service.EntityStore
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(store *service.EntityStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// ListClients godoc
// @Summary List visible clients
// @Description Coaches see every client; a client sees only themselves.
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Client
// @Router /clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	perms := h.store.Permissions()
	visible := []domain.Client{}
	for _, client := range h.store.ListClients() {
		if perms.HasPermission(permission.ViewProgram, client.ID) {
			visible = append(visible, client)
		}
	}
	c.JSON(http.StatusOK, visible)
}

// GetClient godoc
// @Summary Get one client with their plan bundle
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {object} domain.Client
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Client not found"
// @Router /clients/{clientId} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	clientID := c.Param("clientId")
	if !h.store.Permissions().HasPermission(permission.ViewProgram, clientID) {
		abortWithServiceError(c, service.ErrPermissionDenied)
		return
	}
	client, ok := h.store.GetClient(clientID)
	if !ok {
		abortWithServiceError(c, service.ErrClientNotFound)
		return
	}
	c.JSON(http.StatusOK, client)
}

// CreateClient godoc
// @Summary Create a client
// @Description Missing fields are filled with defaults. Fails and rolls back if the remote store rejects the write.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param client body domain.Client true "Client"
// @Success 201 {object} domain.Client
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 502 {object} gin.H "Remote sync failed"
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req domain.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.ID = ""

	saved, err := h.store.SaveClient(c.Request.Context(), req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateClient replaces a client and waits for the remote write.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	clientID := c.Param("clientId")
	if _, ok := h.store.GetClient(clientID); !ok {
		abortWithServiceError(c, service.ErrClientNotFound)
		return
	}
	var req domain.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.ID = clientID

	saved, err := h.store.SaveClient(c.Request.Context(), req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// UpdateClientLive applies an in-session edit immediately and syncs it in
// the background. Responds 202 since the remote write is still pending.
func (h *ClientHandler) UpdateClientLive(c *gin.Context) {
	clientID := c.Param("clientId")
	if !h.store.Permissions().HasPermission(permission.EditProgram, clientID) {
		abortWithServiceError(c, service.ErrPermissionDenied)
		return
	}
	if _, ok := h.store.GetClient(clientID); !ok {
		abortWithServiceError(c, service.ErrClientNotFound)
		return
	}
	var req domain.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.ID = clientID
	c.JSON(http.StatusAccepted, h.store.UpdateActiveClient(req))
}

// DeleteClient godoc
// @Summary Delete a client
// @Tags Clients
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 428 {object} gin.H "Confirmation required"
// @Router /clients/{clientId} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.store.DeleteClient(confirmedContext(c), c.Param("clientId")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectClient makes a client the active one.
func (h *ClientHandler) SelectClient(c *gin.Context) {
	clientID := c.Param("clientId")
	if err := h.store.SetActiveClient(clientID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	client, _ := h.store.GetClient(clientID)
	c.JSON(http.StatusOK, client)
}

// GetActiveClient returns the active client, or 404 when none is selected.
func (h *ClientHandler) GetActiveClient(c *gin.Context) {
	client, ok := h.store.ActiveClient()
	if !ok {
		abortWithError(c, http.StatusNotFound, "No active client")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) ClearActiveClient(c *gin.Context) {
	h.store.ClearActiveClient()
	c.Status(http.StatusNoContent)
}

// ApplyTemplate godoc
// @Summary Replace a client's week with a template
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param templateId path string true "Template ID"
// @Success 200 {object} domain.Client
// @Failure 404 {object} gin.H "Client or template not found"
// @Router /clients/{clientId}/templates/{templateId} [post]
func (h *ClientHandler) ApplyTemplate(c *gin.Context) {
	client, err := h.store.ApplyTemplate(c.Request.Context(), c.Param("clientId"), c.Param("templateId"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}
