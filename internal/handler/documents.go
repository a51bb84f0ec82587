package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/logger"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/storage"
	"lawdesk/internal/util"
)

// DocumentHandler stores uploads through a storage.Store and keeps their
// metadata in the documents table.
type DocumentHandler struct {
	DB        *gorm.DB
	Store     storage.Store
	MaxUpload int64 // bytes
}

func NewDocumentHandler(db *gorm.DB, store storage.Store, maxUploadMB int64) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &DocumentHandler{DB: db, Store: store, MaxUpload: maxUploadMB << 20}
}

func (h *DocumentHandler) List(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Document{}).Scopes(tenantScope(c))

	clientID, ok := optionalUintQuery(c, "client_id")
	if !ok {
		return
	}
	if clientID != nil {
		base = base.Where("client_id = ?", *clientID)
	}
	matterID, ok := optionalUintQuery(c, "matter_id")
	if !ok {
		return
	}
	if matterID != nil {
		base = base.Where("matter_id = ?", *matterID)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		base = base.Where("(name LIKE ? ESCAPE '\\' OR file_name LIKE ? ESCAPE '\\')", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count documents failed")
		return
	}
	var list []models.Document
	if err := base.Order("created_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list documents failed")
		return
	}
	util.Success(c, p.response(list, total))
}

// Get returns the document and every version sharing its root.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}
	root := doc.ID
	if doc.ParentID != nil {
		root = *doc.ParentID
	}
	var versions []models.Document
	if err := h.DB.Where("tenant_id = ? AND (id = ? OR parent_id = ?)", doc.TenantID, root, root).
		Order("version ASC").Find(&versions).Error; err != nil {
		serverError(c, err, "list versions failed")
		return
	}
	util.Success(c, util.Response{"document": doc, "versions": versions})
}

// Upload accepts multipart field "file" plus optional client_id, matter_id
// and name.
func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	fh, ok := h.formFile(c)
	if !ok {
		return
	}

	tenantID := middleware.TenantID(c)
	doc := models.Document{
		TenantID:   tenantID,
		Name:       strings.TrimSpace(c.PostForm("name")),
		Version:    1,
		UploadedBy: user.ID,
	}
	if raw := c.PostForm("client_id"); raw != "" {
		id, ok := h.formRef(c, "client_id", raw, &models.Client{})
		if !ok {
			return
		}
		doc.ClientID = &id
	}
	var matter *models.Matter
	if raw := c.PostForm("matter_id"); raw != "" {
		id, ok := h.formRef(c, "matter_id", raw, &models.Matter{})
		if !ok {
			return
		}
		doc.MatterID = &id
		matter = &models.Matter{}
		if err := h.DB.First(matter, id).Error; err != nil {
			serverError(c, err, "load matter failed")
			return
		}
		if doc.ClientID == nil {
			cid := matter.ClientID
			doc.ClientID = &cid
		}
	}

	h.store(c, user, &doc, fh, matter)
}

// NewVersion uploads a replacement for :id. The new row points at the root
// document and takes the next version number.
func (h *DocumentHandler) NewVersion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	prev, ok := h.load(c)
	if !ok {
		return
	}
	fh, ok := h.formFile(c)
	if !ok {
		return
	}

	root := prev.ID
	if prev.ParentID != nil {
		root = *prev.ParentID
	}
	var latest int
	if err := h.DB.Model(&models.Document{}).
		Where("tenant_id = ? AND (id = ? OR parent_id = ?)", prev.TenantID, root, root).
		Select("COALESCE(MAX(version), 0)").Scan(&latest).Error; err != nil {
		serverError(c, err, "load versions failed")
		return
	}

	doc := models.Document{
		TenantID:   prev.TenantID,
		ClientID:   prev.ClientID,
		MatterID:   prev.MatterID,
		Name:       prev.Name,
		Version:    latest + 1,
		ParentID:   &root,
		UploadedBy: user.ID,
	}
	if name := strings.TrimSpace(c.PostForm("name")); name != "" {
		doc.Name = name
	}

	var matter *models.Matter
	if doc.MatterID != nil {
		matter = &models.Matter{}
		if err := h.DB.First(matter, *doc.MatterID).Error; err != nil {
			matter = nil
		}
	}
	h.store(c, user, &doc, fh, matter)
}

// store writes the bytes, then the row, then the matter activity. The
// object is removed again when the row cannot be written.
func (h *DocumentHandler) store(c *gin.Context, user *models.User, doc *models.Document, fh *multipart.FileHeader, matter *models.Matter) {
	f, err := fh.Open()
	if err != nil {
		serverError(c, err, "open upload failed")
		return
	}
	defer f.Close()

	fileName := filepath.Base(fh.Filename)
	if doc.Name == "" {
		doc.Name = fileName
	}
	doc.FileName = fileName
	doc.MimeType = fh.Header.Get("Content-Type")
	if doc.MimeType == "" {
		doc.MimeType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	key := storage.NewKey(time.Now(), fileName)
	obj, err := h.Store.Put(ctx, key, f, doc.MimeType)
	if err != nil {
		serverError(c, err, "store file failed")
		return
	}
	doc.StorageKey = obj.Key
	doc.StoragePath = obj.URL
	doc.Size = obj.Size

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if matter == nil {
			return nil
		}
		desc := fmt.Sprintf("Document added: %s", doc.Name)
		if doc.Version > 1 {
			desc = fmt.Sprintf("Document updated: %s (v%d)", doc.Name, doc.Version)
		}
		return addActivity(tx, doc.TenantID, matter.ID, user.ID, "document_added", desc)
	})
	if err != nil {
		if delErr := h.Store.Delete(ctx, obj.Key); delErr != nil {
			l := logger.FromContext(ctx)
			l.Warn().Err(delErr).Str("key", obj.Key).Msg("remove orphaned upload failed")
		}
		serverError(c, err, "save document failed")
		return
	}
	util.Created(c, util.Response{"document": doc})
}

// Download streams the stored bytes.
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}
	rc, err := h.Store.Open(c.Request.Context(), doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "file not found")
			return
		}
		serverError(c, err, "open file failed")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, rc, nil)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	doc, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		// later versions keep pointing at a root; promote the oldest one
		if doc.ParentID == nil {
			var next models.Document
			err := tx.Where("parent_id = ?", doc.ID).Order("version ASC").First(&next).Error
			switch {
			case err == nil:
				if err := tx.Model(&models.Document{}).Where("parent_id = ? AND id <> ?", doc.ID, next.ID).
					Update("parent_id", next.ID).Error; err != nil {
					return err
				}
				if err := tx.Model(&next).Update("parent_id", nil).Error; err != nil {
					return err
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		return tx.Delete(doc).Error
	})
	if err != nil {
		serverError(c, err, "delete document failed")
		return
	}
	if err := h.Store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		l := logger.FromContext(ctx)
		l.Warn().Err(err).Str("key", doc.StorageKey).Msg("remove deleted document file failed")
	}
	util.Success(c, util.Response{"message": "deleted"})
}

func (h *DocumentHandler) load(c *gin.Context) (*models.Document, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var doc models.Document
	if err := h.DB.Scopes(tenantScope(c)).First(&doc, id).Error; err != nil {
		lookupError(c, err, "document")
		return nil, false
	}
	return &doc, true
}

func (h *DocumentHandler) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUpload+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			invalidField(c, "file", "max", "file is too large")
			return nil, false
		}
		invalidField(c, "file", "required", "is required")
		return nil, false
	}
	if fh.Size > h.MaxUpload {
		invalidField(c, "file", "max", "file is too large")
		return nil, false
	}
	if fh.Size == 0 {
		invalidField(c, "file", "required", "file is empty")
		return nil, false
	}
	return fh, true
}

// formRef parses a form id and checks it belongs to the tenant.
func (h *DocumentHandler) formRef(c *gin.Context, field, raw string, model any) (uint, bool) {
	id, err := util.ParseID(raw)
	if err != nil {
		invalidField(c, field, "id", "must be a positive integer")
		return 0, false
	}
	ok, err := belongs(h.DB, model, middleware.TenantID(c), id)
	if err != nil {
		serverError(c, err, "check reference failed")
		return 0, false
	}
	if !ok {
		invalidField(c, field, "exists", "not found")
		return 0, false
	}
	return id, true
}
