package handler

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/backup"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// BackupHandler serves /api/settings/backups.
type BackupHandler struct {
	DB         *gorm.DB
	EncryptKey string
	BackupDir  string
}

func NewBackupHandler(db *gorm.DB, encryptKey, backupDir string) *BackupHandler {
	return &BackupHandler{DB: db, EncryptKey: encryptKey, BackupDir: backupDir}
}

func backupView(b *models.Backup) gin.H {
	return gin.H{
		"id":         b.ID,
		"file_name":  b.FileName,
		"size":       b.Size,
		"created_by": b.CreatedBy,
		"created_at": b.CreatedAt,
	}
}

// CreateBackup writes an encrypted snapshot of the tenant.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	b, err := backup.Create(c.Request.Context(), h.DB, h.EncryptKey, h.BackupDir, middleware.TenantID(c), user.ID)
	if err != nil {
		serverError(c, err, "create backup failed")
		return
	}
	util.Created(c, util.Response{"backup": backupView(b)})
}

func (h *BackupHandler) ListBackups(c *gin.Context) {
	var list []models.Backup
	if err := h.DB.Scopes(tenantScope(c)).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		serverError(c, err, "list backups failed")
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, backupView(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.FileName))
	c.File(b.FilePath)
}

// DeleteBackup removes the file, then the record.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
		serverError(c, err, "delete backup file failed")
		return
	}
	if err := h.DB.Delete(b).Error; err != nil {
		serverError(c, err, "delete backup failed")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

func (h *BackupHandler) load(c *gin.Context) (*models.Backup, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var b models.Backup
	if err := h.DB.Scopes(tenantScope(c)).First(&b, id).Error; err != nil {
		lookupError(c, err, "backup")
		return nil, false
	}
	return &b, true
}
