package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// CRMHandler serves clients, their contacts and interactions.
type CRMHandler struct {
	DB *gorm.DB
}

func NewCRMHandler(db *gorm.DB) *CRMHandler {
	return &CRMHandler{DB: db}
}

// ---------- clients ----------

type clientReq struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
	Type     *string `json:"type" binding:"omitempty,oneof=individual company"`
	Document *string `json:"document" binding:"omitempty,max=32"`
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Address  *string `json:"address" binding:"omitempty,max=512"`
	Status   *string `json:"status" binding:"omitempty,oneof=lead prospect active inactive"`
	Notes    *string `json:"notes"`
}

func (r *clientReq) apply(cl *models.Client) {
	setString(&cl.Name, r.Name)
	setString(&cl.Type, r.Type)
	setString(&cl.Document, r.Document)
	setString(&cl.Email, r.Email)
	setString(&cl.Phone, r.Phone)
	setString(&cl.Address, r.Address)
	setString(&cl.Status, r.Status)
	setString(&cl.Notes, r.Notes)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (h *CRMHandler) ListClients(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Client{}).Scopes(tenantScope(c))
	if s := c.Query("status"); s != "" {
		base = base.Where("status = ?", s)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		base = base.Where("(name LIKE ? ESCAPE '\\' OR email LIKE ? ESCAPE '\\' OR document LIKE ? ESCAPE '\\')", like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count clients failed")
		return
	}
	var list []models.Client
	if err := base.Order("name ASC, id ASC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list clients failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CRMHandler) GetClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var cl models.Client
	if err := h.DB.Scopes(tenantScope(c)).First(&cl, id).Error; err != nil {
		lookupError(c, err, "client")
		return
	}

	var contacts []models.Contact
	if err := h.DB.Where("client_id = ?", cl.ID).Order("name ASC").Find(&contacts).Error; err != nil {
		serverError(c, err, "list contacts failed")
		return
	}
	var matters int64
	if err := h.DB.Model(&models.Matter{}).Where("client_id = ?", cl.ID).Count(&matters).Error; err != nil {
		serverError(c, err, "count matters failed")
		return
	}

	util.Success(c, util.Response{
		"client":       cl,
		"contacts":     contacts,
		"matter_count": matters,
	})
}

func (h *CRMHandler) CreateClient(c *gin.Context) {
	var req clientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		util.ValidationError(c, "invalid request", []util.Issue{{Field: "name", Rule: "required", Message: "is required"}})
		return
	}

	cl := models.Client{
		TenantID: middleware.TenantID(c),
		Type:     "individual",
		Status:   models.ClientStatusLead,
	}
	req.apply(&cl)
	if err := h.DB.Create(&cl).Error; err != nil {
		serverError(c, err, "create client failed")
		return
	}
	util.Created(c, util.Response{"client": cl})
}

func (h *CRMHandler) UpdateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req clientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	var cl models.Client
	if err := h.DB.Scopes(tenantScope(c)).First(&cl, id).Error; err != nil {
		lookupError(c, err, "client")
		return
	}
	req.apply(&cl)
	if cl.Name == "" {
		util.ValidationError(c, "invalid request", []util.Issue{{Field: "name", Rule: "required", Message: "is required"}})
		return
	}
	if err := h.DB.Save(&cl).Error; err != nil {
		serverError(c, err, "update client failed")
		return
	}
	util.Success(c, util.Response{"client": cl})
}

// DeleteClient refuses while the client still has matters or invoices.
func (h *CRMHandler) DeleteClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var cl models.Client
	if err := h.DB.Scopes(tenantScope(c)).First(&cl, id).Error; err != nil {
		lookupError(c, err, "client")
		return
	}

	var matters, invoices int64
	if err := h.DB.Model(&models.Matter{}).Where("client_id = ?", cl.ID).Count(&matters).Error; err != nil {
		serverError(c, err, "count matters failed")
		return
	}
	if err := h.DB.Model(&models.Invoice{}).Where("client_id = ?", cl.ID).Count(&invoices).Error; err != nil {
		serverError(c, err, "count invoices failed")
		return
	}
	if matters > 0 || invoices > 0 {
		businessError(c, "client has matters or invoices and cannot be deleted")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TimeEntry{}).Where("client_id = ? AND invoice_id IS NULL", cl.ID).Update("client_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Document{}).Where("client_id = ?", cl.ID).Update("client_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", cl.ID).Delete(&models.Contact{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", cl.ID).Delete(&models.Interaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cl).Error
	})
	if err != nil {
		serverError(c, err, "delete client failed")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// ---------- contacts ----------

type contactReq struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=255"`
	Role  *string `json:"role" binding:"omitempty,max=64"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
	Phone *string `json:"phone" binding:"omitempty,max=32"`
}

func (h *CRMHandler) clientForRequest(c *gin.Context) (*models.Client, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var cl models.Client
	if err := h.DB.Scopes(tenantScope(c)).First(&cl, id).Error; err != nil {
		lookupError(c, err, "client")
		return nil, false
	}
	return &cl, true
}

func (h *CRMHandler) ListContacts(c *gin.Context) {
	cl, ok := h.clientForRequest(c)
	if !ok {
		return
	}
	var list []models.Contact
	if err := h.DB.Where("client_id = ?", cl.ID).Order("name ASC, id ASC").Find(&list).Error; err != nil {
		serverError(c, err, "list contacts failed")
		return
	}
	util.Success(c, util.Response{"items": list})
}

func (h *CRMHandler) CreateContact(c *gin.Context) {
	cl, ok := h.clientForRequest(c)
	if !ok {
		return
	}
	var req contactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		util.ValidationError(c, "invalid request", []util.Issue{{Field: "name", Rule: "required", Message: "is required"}})
		return
	}

	ct := models.Contact{TenantID: cl.TenantID, ClientID: cl.ID}
	setString(&ct.Name, req.Name)
	setString(&ct.Role, req.Role)
	setString(&ct.Email, req.Email)
	setString(&ct.Phone, req.Phone)
	if err := h.DB.Create(&ct).Error; err != nil {
		serverError(c, err, "create contact failed")
		return
	}
	util.Created(c, util.Response{"contact": ct})
}

func (h *CRMHandler) UpdateContact(c *gin.Context) {
	id, ok := idParam(c, "contactId")
	if !ok {
		return
	}
	var req contactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	var ct models.Contact
	if err := h.DB.Scopes(tenantScope(c)).First(&ct, id).Error; err != nil {
		lookupError(c, err, "contact")
		return
	}
	setString(&ct.Name, req.Name)
	setString(&ct.Role, req.Role)
	setString(&ct.Email, req.Email)
	setString(&ct.Phone, req.Phone)
	if err := h.DB.Save(&ct).Error; err != nil {
		serverError(c, err, "update contact failed")
		return
	}
	util.Success(c, util.Response{"contact": ct})
}

func (h *CRMHandler) DeleteContact(c *gin.Context) {
	id, ok := idParam(c, "contactId")
	if !ok {
		return
	}
	res := h.DB.Scopes(tenantScope(c)).Delete(&models.Contact{}, id)
	if res.Error != nil {
		serverError(c, res.Error, "delete contact failed")
		return
	}
	if res.RowsAffected == 0 {
		lookupError(c, gorm.ErrRecordNotFound, "contact")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

// ---------- interactions ----------

type interactionReq struct {
	Kind       string `json:"kind" binding:"required,oneof=call email meeting note"`
	Summary    string `json:"summary" binding:"required,max=4000"`
	OccurredAt string `json:"occurred_at"`
}

func (h *CRMHandler) ListInteractions(c *gin.Context) {
	cl, ok := h.clientForRequest(c)
	if !ok {
		return
	}
	p := pagination(c)
	base := h.DB.Model(&models.Interaction{}).Where("client_id = ?", cl.ID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count interactions failed")
		return
	}
	var list []models.Interaction
	if err := base.Order("occurred_at DESC, id DESC").Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list interactions failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *CRMHandler) CreateInteraction(c *gin.Context) {
	cl, ok := h.clientForRequest(c)
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req interactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}

	occurred := time.Now()
	if req.OccurredAt != "" {
		t, err := util.ParseTimestamp(req.OccurredAt)
		if err != nil {
			util.ValidationError(c, "invalid request", []util.Issue{{Field: "occurred_at", Rule: "datetime", Message: err.Error()}})
			return
		}
		occurred = t
	}

	it := models.Interaction{
		TenantID:   cl.TenantID,
		ClientID:   cl.ID,
		UserID:     user.ID,
		Kind:       req.Kind,
		Summary:    strings.TrimSpace(req.Summary),
		OccurredAt: occurred,
	}
	if err := h.DB.Create(&it).Error; err != nil {
		serverError(c, err, "create interaction failed")
		return
	}
	util.Created(c, util.Response{"interaction": it})
}

func (h *CRMHandler) DeleteInteraction(c *gin.Context) {
	id, ok := idParam(c, "interactionId")
	if !ok {
		return
	}
	res := h.DB.Scopes(tenantScope(c)).Delete(&models.Interaction{}, id)
	if res.Error != nil {
		serverError(c, res.Error, "delete interaction failed")
		return
	}
	if res.RowsAffected == 0 {
		lookupError(c, gorm.ErrRecordNotFound, "interaction")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}
