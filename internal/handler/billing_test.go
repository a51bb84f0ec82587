package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawdesk/internal/billing"
	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
	"lawdesk/internal/util"
)

func TestInvoiceCreate_NumberTakenIsConflict(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	user := testutil.User(t, db, tenant.ID, models.RoleFinancial)
	client := testutil.Client(t, db, tenant.ID, "Maria")
	entry := testutil.TimeEntry(t, db, tenant.ID, user.ID, client.ID, "1")

	now := time.Now().UTC()
	for i, number := range []string{"0002", "0001"} {
		at := now.Add(time.Duration(i-2) * time.Hour)
		require.NoError(t, db.Omit("Client", "Items", "Payments").Create(&models.Invoice{
			TenantID:      tenant.ID,
			ClientID:      client.ID,
			InvoiceNumber: number,
			IssueDate:     at,
			DueDate:       at.AddDate(0, 0, 14),
			Status:        models.InvoiceStatusPending,
			CreatedAt:     at,
		}).Error)
	}

	h := NewInvoiceHandler(db, billing.NewService(db, decimal.NewFromInt(300), 14))
	r := asUser(user)
	r.POST("/invoices", h.Create)

	w, env := serve(t, r, jsonRequest(t, http.MethodPost, "/invoices", gin.H{
		"client_id": client.ID, "time_entry_ids": []uint{entry.ID},
	}))
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, util.CodeConflict, env.Code)

	var reloaded models.TimeEntry
	require.NoError(t, db.First(&reloaded, entry.ID).Error)
	assert.Nil(t, reloaded.InvoiceID)
}
