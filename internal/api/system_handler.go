package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"alcyxob/flexcoach/internal/service"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles backup, restore and reset.
type SystemHandler struct {
	backupService service.BackupService
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(bs service.BackupService) *SystemHandler {
	return &SystemHandler{backupService: bs}
}

type RestoreArchiveRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// DownloadBackup godoc
// @Summary Download a backup of every client and template
// @Tags System
// @Produce json
// @Security BearerAuth
// @Success 200 {file} file "flexpro_backup_<date>.json"
// @Router /backup [get]
func (h *SystemHandler) DownloadBackup(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.backupService.Backup(c.Request.Context(), &buf); err != nil {
		abortWithServiceError(c, err)
		return
	}
	filename := fmt.Sprintf("flexpro_backup_%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// ArchiveBackup uploads a backup to object storage and returns a download link.
func (h *SystemHandler) ArchiveBackup(c *gin.Context) {
	archive, err := h.backupService.BackupToStorage(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, archive)
}

// Restore godoc
// @Summary Replace all clients and templates from a backup file
// @Tags System
// @Accept json
// @Security BearerAuth
// @Success 204
// @Failure 400 {object} gin.H "Malformed backup, nothing changed"
// @Router /restore [post]
func (h *SystemHandler) Restore(c *gin.Context) {
	if err := h.backupService.Restore(c.Request.Context(), c.Request.Body); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SystemHandler) RestoreArchive(c *gin.Context) {
	var req RestoreArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.backupService.RestoreFromStorage(c.Request.Context(), req.ObjectKey); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetSystem wipes local state. Requires ?confirm=true.
func (h *SystemHandler) ResetSystem(c *gin.Context) {
	if err := h.backupService.ResetSystem(confirmedContext(c)); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
