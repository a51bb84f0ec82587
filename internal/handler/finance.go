package handler

import (
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

// FinanceHandler serves the manual ledger and its monthly summary.
type FinanceHandler struct {
	DB *gorm.DB
}

func NewFinanceHandler(db *gorm.DB) *FinanceHandler {
	return &FinanceHandler{DB: db}
}

type transactionReq struct {
	Type        *string          `json:"type" binding:"omitempty,oneof=revenue expense"`
	Category    *string          `json:"category"`
	Description *string          `json:"description" binding:"omitempty,max=1024"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
	Status      *string          `json:"status" binding:"omitempty,oneof=completed pending"`
}

// apply validates and copies the request onto t.
func (r *transactionReq) apply(c *gin.Context, t *models.Transaction) bool {
	if r.Category != nil {
		if err := util.ValidateCategory(*r.Category); err != nil {
			invalidField(c, "category", "category", err.Error())
			return false
		}
	}
	if r.Amount != nil {
		if err := util.ValidateAmount(*r.Amount); err != nil {
			invalidField(c, "amount", "range", err.Error())
			return false
		}
		t.Amount = r.Amount.Round(2)
	}
	if r.Date != nil {
		d, err := util.ParseTimestamp(*r.Date)
		if err != nil {
			invalidField(c, "date", "date", err.Error())
			return false
		}
		t.Date = d
	}
	setString(&t.Type, r.Type)
	setString(&t.Category, r.Category)
	setString(&t.Description, r.Description)
	setString(&t.Status, r.Status)
	return true
}

// ListTransactions filters by ?type=, ?category= (comma list), ?from=, ?to=
// and sorts by ?sort=date_desc|date_asc|amount_desc|amount_asc.
func (h *FinanceHandler) ListTransactions(c *gin.Context) {
	p := pagination(c)
	base := h.DB.Model(&models.Transaction{}).Scopes(tenantScope(c))

	if t := c.Query("type"); t == models.TransactionRevenue || t == models.TransactionExpense {
		base = base.Where("type = ?", t)
	}
	if raw := c.Query("category"); raw != "" {
		var cats []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cats = append(cats, s)
			}
		}
		if len(cats) > 0 {
			base = base.Where("category IN ?", cats)
		}
	}
	invoiceID, ok := optionalUintQuery(c, "invoice_id")
	if !ok {
		return
	}
	if invoiceID != nil {
		base = base.Where("invoice_id = ?", *invoiceID)
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from != nil {
		base = base.Where("date >= ?", *from)
	}
	if to != nil {
		base = base.Where("date < ?", *to)
	}

	orderBy := "date DESC, id DESC"
	switch c.Query("sort") {
	case "date_asc":
		orderBy = "date ASC, id ASC"
	case "amount_desc":
		orderBy = "amount DESC, id DESC"
	case "amount_asc":
		orderBy = "amount ASC, id ASC"
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, err, "count transactions failed")
		return
	}
	var list []models.Transaction
	if err := base.Session(&gorm.Session{}).Order(orderBy).Limit(p.Size).Offset(p.Offset).Find(&list).Error; err != nil {
		serverError(c, err, "list transactions failed")
		return
	}
	util.Success(c, p.response(list, total))
}

func (h *FinanceHandler) GetTransaction(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	util.Success(c, util.Response{"transaction": t})
}

func (h *FinanceHandler) CreateTransaction(c *gin.Context) {
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	switch {
	case req.Type == nil:
		invalidField(c, "type", "required", "is required")
		return
	case req.Category == nil:
		invalidField(c, "category", "required", "is required")
		return
	case req.Amount == nil:
		invalidField(c, "amount", "required", "is required")
		return
	}

	t := models.Transaction{
		TenantID: middleware.TenantID(c),
		Date:     time.Now(),
		Status:   models.TransactionStatusCompleted,
	}
	if !req.apply(c, &t) {
		return
	}
	if err := h.DB.Create(&t).Error; err != nil {
		serverError(c, err, "create transaction failed")
		return
	}
	util.Created(c, util.Response{"transaction": t})
}

// UpdateTransaction edits a manual entry. Rows written by payment recording
// are locked.
func (h *FinanceHandler) UpdateTransaction(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	if t.PaymentID != nil {
		businessError(c, "transaction is linked to a payment and cannot be edited")
		return
	}
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BindError(c, err)
		return
	}
	if !req.apply(c, t) {
		return
	}
	if err := h.DB.Save(t).Error; err != nil {
		serverError(c, err, "update transaction failed")
		return
	}
	util.Success(c, util.Response{"transaction": t})
}

func (h *FinanceHandler) DeleteTransaction(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	if t.PaymentID != nil {
		businessError(c, "transaction is linked to a payment and cannot be deleted")
		return
	}
	if err := h.DB.Delete(t).Error; err != nil {
		serverError(c, err, "delete transaction failed")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}

func (h *FinanceHandler) load(c *gin.Context) (*models.Transaction, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var t models.Transaction
	if err := h.DB.Scopes(tenantScope(c)).First(&t, id).Error; err != nil {
		lookupError(c, err, "transaction")
		return nil, false
	}
	return &t, true
}

// ---------- summary ----------

type flowStat struct {
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *flowStat) add(t *models.Transaction) {
	if t.Type == models.TransactionRevenue {
		s.Revenue = s.Revenue.Add(t.Amount)
	} else {
		s.Expense = s.Expense.Add(t.Amount)
	}
	s.Balance = s.Revenue.Sub(s.Expense)
}

type categoryStat struct {
	Category string `json:"category"`
	flowStat
}

type dailyStat struct {
	Date string `json:"date"`
	flowStat
}

// MonthSummary totals a month of completed transactions.
type MonthSummary struct {
	Month      string         `json:"month"`
	Total      flowStat       `json:"total"`
	ByCategory []categoryStat `json:"by_category"`
	Daily      []dailyStat    `json:"daily"`
}

// Summarize groups txns by category and by day. Pending rows are skipped.
func Summarize(month string, txns []models.Transaction) MonthSummary {
	out := MonthSummary{Month: month}
	cats := map[string]*categoryStat{}
	days := map[string]*dailyStat{}

	for i := range txns {
		t := &txns[i]
		if t.Status == models.TransactionStatusPending {
			continue
		}
		out.Total.add(t)

		cs, ok := cats[t.Category]
		if !ok {
			cs = &categoryStat{Category: t.Category}
			cats[t.Category] = cs
		}
		cs.add(t)

		key := t.Date.Format(util.DateLayout)
		ds, ok := days[key]
		if !ok {
			ds = &dailyStat{Date: key}
			days[key] = ds
		}
		ds.add(t)
	}

	out.ByCategory = make([]categoryStat, 0, len(cats))
	for _, cs := range cats {
		out.ByCategory = append(out.ByCategory, *cs)
	}
	sort.Slice(out.ByCategory, func(i, j int) bool {
		return out.ByCategory[i].Category < out.ByCategory[j].Category
	})

	out.Daily = make([]dailyStat, 0, len(days))
	for _, ds := range days {
		out.Daily = append(out.Daily, *ds)
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })
	return out
}

// Summary handles GET /api/finance/summary?month=YYYY-MM (default current month).
func (h *FinanceHandler) Summary(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = time.Now().Format(util.MonthLayout)
	}
	start, end, err := util.ParseMonth(month)
	if err != nil {
		invalidField(c, "month", "month", err.Error())
		return
	}

	var txns []models.Transaction
	if err := h.DB.Scopes(tenantScope(c)).
		Where("date >= ? AND date < ?", start, end).
		Order("date ASC, id ASC").
		Find(&txns).Error; err != nil {
		serverError(c, err, "load transactions failed")
		return
	}

	util.Success(c, util.Response{"summary": Summarize(month, txns)})
}
