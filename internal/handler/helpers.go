package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk/internal/billing"
	"lawdesk/internal/logger"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type page struct {
	Page   int
	Size   int
	Offset int
}

// pagination reads page/page_size with the usual bounds.
func pagination(c *gin.Context) page {
	p, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if p <= 0 {
		p = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page{Page: p, Size: size, Offset: (p - 1) * size}
}

func (p page) response(items any, total int64) util.Response {
	return util.Response{
		"items": items,
		"total": total,
		"page":  p.Page,
		"size":  p.Size,
	}
}

// currentUser returns the authenticated user or writes 401.
func currentUser(c *gin.Context) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not authenticated")
		return nil, false
	}
	return user, true
}

// idParam parses a positive :name path parameter or writes 400.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(c.Param(name))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalUintQuery parses ?name= when present.
func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := util.ParseID(raw)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// dateRange reads ?from= and ?to= (YYYY-MM-DD); to is inclusive.
func dateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	if s := c.Query("from"); s != "" {
		t, err := util.ParseDate(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid from date")
			return nil, nil, false
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := util.ParseDate(s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid to date")
			return nil, nil, false
		}
		end := t.Add(24 * time.Hour)
		to = &end
	}
	return from, to, true
}

// serverError logs err on the request logger and writes a 500.
func serverError(c *gin.Context, err error, msg string) {
	l := logger.FromContext(c.Request.Context())
	l.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Msg(msg)
	_ = c.Error(err)
	util.Error(c, http.StatusInternalServerError, util.CodeServerErr, msg)
}

// lookupError writes 404 for a missing row and 500 otherwise.
func lookupError(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, what+" not found")
		return
	}
	serverError(c, err, "load "+what+" failed")
}

// businessError writes a 400 for a rule violation.
func businessError(c *gin.Context, msg string) {
	util.Error(c, http.StatusBadRequest, util.CodeBusiness, msg)
}

// billingError maps billing service errors onto the response envelope.
func billingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidInput):
		util.ValidationError(c, "invalid request", []util.Issue{{
			Field:   "body",
			Rule:    "invalid",
			Message: strings.TrimPrefix(err.Error(), billing.ErrInvalidInput.Error()+": "),
		}})
	case errors.Is(err, billing.ErrClientNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "client not found")
	case errors.Is(err, billing.ErrTimeEntryNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "time entry not found")
	case errors.Is(err, billing.ErrInvoiceNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "invoice not found")
	case errors.Is(err, billing.ErrEntriesUnavailable):
		businessError(c, "some time entries are not available for billing")
	case errors.Is(err, billing.ErrEntryBilled):
		businessError(c, "time entry is already billed")
	case errors.Is(err, billing.ErrInvoiceHasPayments):
		businessError(c, "cannot delete an invoice with payments")
	case errors.Is(err, billing.ErrNumberTaken):
		util.Error(c, http.StatusConflict, util.CodeConflict, "invoice number already taken, retry")
	default:
		serverError(c, err, "billing operation failed")
	}
}

// tenantScope filters a query by the request tenant.
func tenantScope(c *gin.Context) func(*gorm.DB) *gorm.DB {
	tenantID := middleware.TenantID(c)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// belongs reports whether a row of model with id exists in tenantID.
func belongs(db *gorm.DB, model any, tenantID, id uint) (bool, error) {
	var n int64
	err := db.Model(model).Where("id = ? AND tenant_id = ?", id, tenantID).Count(&n).Error
	return n > 0, err
}

// likePattern escapes % and _ for a LIKE filter.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(q) + "%"
}
