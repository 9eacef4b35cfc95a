package api

import (
	"net/http"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestHandler handles the program request workflow.
type RequestHandler struct {
	requestService service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(rs service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: rs}
}

// --- DTOs ---

type SubmitRequestRequest struct {
	ProgramType domain.ProgramType `json:"programType" binding:"required"`
}

type ResolveRequestRequest struct {
	Response string `json:"response"`
}

// GetPendingRequests godoc
// @Summary List pending program requests
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ProgramRequest
// @Router /requests [get]
func (h *RequestHandler) GetPendingRequests(c *gin.Context) {
	pending := h.requestService.PendingRequests()
	if pending == nil {
		pending = []domain.ProgramRequest{}
	}
	c.JSON(http.StatusOK, pending)
}

// GetClientRequests lists every request filed by one client.
func (h *RequestHandler) GetClientRequests(c *gin.Context) {
	reqs, err := h.requestService.RequestsForClient(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if reqs == nil {
		reqs = []domain.ProgramRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

// SubmitRequest godoc
// @Summary File a program request on behalf of a client
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body SubmitRequestRequest true "Program type"
// @Success 201 {object} domain.ProgramRequest
// @Failure 400 {object} gin.H "Invalid program type"
// @Failure 403 {object} gin.H "Forbidden"
// @Router /clients/{clientId}/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	var req SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	created, err := h.requestService.SubmitRequest(c.Request.Context(), c.Param("clientId"), req.ProgramType)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// AcceptRequest godoc
// @Summary Accept a pending request and create its client
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Request ID"
// @Param body body ResolveRequestRequest false "Coach response"
// @Success 201 {object} domain.Client "Materialized client"
// @Failure 400 {object} gin.H "Request carries no client data"
// @Failure 409 {object} gin.H "Request no longer pending"
// @Router /requests/{requestId}/accept [post]
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	var req ResolveRequestRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	client, err := h.requestService.AcceptRequest(c.Request.Context(), c.Param("requestId"), req.Response)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var req ResolveRequestRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := h.requestService.RejectRequest(c.Request.Context(), c.Param("requestId"), req.Response); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.requestService.DeleteRequest(c.Request.Context(), c.Param("requestId")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindOptionalJSON binds the body when one was sent. It reports false after
// aborting on a malformed body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
