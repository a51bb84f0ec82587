package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/models"
	"lawdesk/internal/notify"
	"lawdesk/internal/storage"
	"lawdesk/internal/testutil"
	"lawdesk/internal/util"
)

const testPassword = "Secret123"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeSender struct{ sent []notify.Message }

func (f *fakeSender) Send(m notify.Message) error {
	f.sent = append(f.sent, m)
	return nil
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	mail   *fakeSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		JWT:      config.JWTConfig{Secret: "test-secret", Issuer: "lawdesk", ExpireHours: 1, CookieName: "ld_session"},
		Security: config.SecurityConfig{BcryptCost: 4, EncryptionKey: "test-encryption-key"},
		Storage: config.StorageConfig{
			Driver: "local", LocalDir: dir + "/uploads", PublicPrefix: "/uploads", MaxUploadSizeMB: 1,
		},
		Billing: config.BillingConfig{DefaultHourlyRate: 300, DefaultDueDays: 14},
		Backup:  config.BackupConfig{Dir: dir + "/backups"},
	}

	store, err := storage.New(t.Context(), cfg.Storage)
	require.NoError(t, err)

	db := testutil.NewDB(t)
	mail := &fakeSender{}
	engine := SetupRouter(cfg, db, Deps{
		Store:  store,
		Logger: zerolog.Nop(),
		NewSender: func(*models.TenantSettings) (notify.Sender, error) {
			return mail, nil
		},
	})
	return &testServer{t: t, db: db, engine: engine, mail: mail}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// register creates a firm and returns the admin's token.
func (s *testServer) register(firm, email string) string {
	s.t.Helper()
	w, _ := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"firm_name": firm, "name": "Admin", "email": email, "password": testPassword,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(email, testPassword)
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

// addUser inserts a user with a known password into the tenant of email's owner.
func (s *testServer) addUser(tenantID uint, role, email string) string {
	s.t.Helper()
	hash, err := util.HashPassword(testPassword, 4)
	require.NoError(s.t, err)
	require.NoError(s.t, s.db.Create(&models.User{
		TenantID: tenantID, Email: email, Name: role, PasswordHash: hash, Role: role, Active: true,
	}).Error)
	return s.login(email, testPassword)
}

func (s *testServer) tenantOf(email string) uint {
	s.t.Helper()
	var u models.User
	require.NoError(s.t, s.db.Where("email = ?", email).First(&u).Error)
	return u.TenantID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Silva Advogados", "admin@silva.test")

	w, env := s.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User        map[string]any `json:"user"`
		Permissions []string       `json:"permissions"`
	}](t, env.Data)
	assert.Equal(t, "admin", me.User["role"])
	assert.Contains(t, me.Permissions, "settings.manage")

	w, env = s.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, util.CodeAuth, env.Code)

	w, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.register("Firm A", "dup@firm.test")

	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"firm_name": "Firm B", "name": "Other", "email": "DUP@firm.test", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, util.CodeConflict, env.Code)
}

func TestAuth_WrongPasswordLocksAccount(t *testing.T) {
	s := newTestServer(t)
	s.register("Firm", "lock@firm.test")

	for i := 0; i < 5; i++ {
		w, _ := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "lock@firm.test", "password": "Wrong1234"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "lock@firm.test", "password": testPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, env.Message, "locked")
}

func TestPermissions_RoleIsEnforced(t *testing.T) {
	s := newTestServer(t)
	s.register("Firm", "owner@firm.test")
	assistant := s.addUser(s.tenantOf("owner@firm.test"), models.RoleAssistant, "assistant@firm.test")

	w, _ := s.do(http.MethodGet, "/api/crm/clients", assistant, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/billing/invoices", assistant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, util.CodeForbidden, env.Code)

	w, _ = s.do(http.MethodGet, "/api/settings", assistant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPermissions_TenantOverride(t *testing.T) {
	s := newTestServer(t)
	admin := s.register("Firm", "owner@firm.test")
	assistant := s.addUser(s.tenantOf("owner@firm.test"), models.RoleAssistant, "assistant@firm.test")

	w, _ := s.do(http.MethodPut, "/api/settings/roles/assistant", admin, gin.H{
		"allowed": []string{"clients.view", "billing.view"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodGet, "/api/billing/invoices", assistant, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPost, "/api/billing/invoices", assistant, gin.H{"client_id": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)
	a := s.register("Firm A", "a@firm.test")
	b := s.register("Firm B", "b@firm.test")

	w, env := s.do(http.MethodPost, "/api/crm/clients", a, gin.H{"name": "Maria", "type": "individual"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cl := decode[struct {
		Client models.Client `json:"client"`
	}](t, env.Data).Client

	path := fmt.Sprintf("/api/crm/clients/%d", cl.ID)
	w, _ = s.do(http.MethodGet, path, b, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodDelete, path, b, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodGet, path, a, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBilling_InvoicePaymentFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Firm", "owner@firm.test")

	_, env := s.do(http.MethodPost, "/api/crm/clients", token, gin.H{"name": "Acme Ltda", "type": "company"})
	cl := decode[struct {
		Client models.Client `json:"client"`
	}](t, env.Data).Client

	var ids []uint
	for _, h := range []string{"2", "1.5"} {
		w, env := s.do(http.MethodPost, "/api/billing/time-entries", token, gin.H{
			"client_id": cl.ID, "description": "research", "hours": h, "date": "2025-03-01",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		e := decode[struct {
			TimeEntry models.TimeEntry `json:"time_entry"`
		}](t, env.Data).TimeEntry
		ids = append(ids, e.ID)
	}

	w, env := s.do(http.MethodGet, fmt.Sprintf("/api/billing/time-entries/unbilled?client_id=%d", cl.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	unbilled := decode[struct {
		Items      []models.TimeEntry `json:"items"`
		TotalHours decimal.Decimal    `json:"total_hours"`
	}](t, env.Data)
	assert.Len(t, unbilled.Items, 2)
	assert.True(t, decimal.RequireFromString("3.5").Equal(unbilled.TotalHours))

	w, env = s.do(http.MethodPost, "/api/billing/invoices", token, gin.H{
		"client_id": cl.ID, "time_entry_ids": ids, "hourly_rate": "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[struct {
		Invoice models.Invoice `json:"invoice"`
	}](t, env.Data).Invoice
	assert.Equal(t, "0001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusPending, inv.Status)
	assert.True(t, decimal.NewFromInt(350).Equal(inv.TotalAmount), inv.TotalAmount.String())

	// entries are now billed and cannot be reused or edited
	w, _ = s.do(http.MethodPost, "/api/billing/invoices", token, gin.H{
		"client_id": cl.ID, "time_entry_ids": ids[:1],
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPatch, fmt.Sprintf("/api/billing/time-entries/%d", ids[0]), token, gin.H{"hours": "3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payPath := fmt.Sprintf("/api/billing/invoices/%d/payments", inv.ID)
	w, env = s.do(http.MethodPost, payPath, token, gin.H{"amount": "150", "payment_method": "pix"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	partial := decode[struct {
		Invoice models.Invoice `json:"invoice"`
	}](t, env.Data).Invoice
	assert.Equal(t, models.InvoiceStatusPending, partial.Status)

	w, env = s.do(http.MethodPost, payPath, token, gin.H{"amount": "200", "payment_method": "pix"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paid := decode[struct {
		Invoice   models.Invoice  `json:"invoice"`
		TotalPaid decimal.Decimal `json:"total_paid"`
	}](t, env.Data)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Invoice.Status)
	assert.True(t, decimal.NewFromInt(350).Equal(paid.TotalPaid))

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/finance/transactions?invoice_id=%d", inv.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	txns := decode[struct {
		Items []models.Transaction `json:"items"`
		Total int64                `json:"total"`
	}](t, env.Data)
	assert.EqualValues(t, 2, txns.Total)

	// ledger rows created by payments are owned by the payment
	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/finance/transactions/%d", txns.Items[0].ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/billing/invoices/%d/pdf", inv.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestCalendar_TokenFeed(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Firm", "owner@firm.test")

	w, _ := s.do(http.MethodGet, "/api/calendar/ics?token=nope", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(http.MethodPost, "/api/settings/calendar-token", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	feed := decode[struct {
		Token string `json:"token"`
	}](t, env.Data)
	require.Len(t, feed.Token, 32)

	w, _ = s.do(http.MethodGet, "/api/calendar/ics?token="+feed.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")

	// rotating invalidates the previous token
	s.do(http.MethodPost, "/api/settings/calendar-token", token, nil)
	w, _ = s.do(http.MethodGet, "/api/calendar/ics?token="+feed.Token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotifications_SendRequiresSMTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Firm", "owner@firm.test")

	w, env := s.do(http.MethodPost, "/api/notifications/send", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, util.CodeBusiness, env.Code)

	w, _ = s.do(http.MethodPut, "/api/settings", token, gin.H{
		"smtp_host": "smtp.firm.test", "smtp_port": 587, "smtp_user": "bot",
		"smtp_password": "pw", "smtp_from": "bot@firm.test", "alert_recipients": "a@firm.test, b@firm.test",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, env = s.do(http.MethodPost, "/api/crm/clients", token, gin.H{"name": "Maria"})
	cl := decode[struct {
		Client models.Client `json:"client"`
	}](t, env.Data).Client
	_, env = s.do(http.MethodPost, "/api/cases/matters", token, gin.H{"client_id": cl.ID, "title": "Ação de cobrança"})
	m := decode[struct {
		Matter models.Matter `json:"matter"`
	}](t, env.Data).Matter
	w, _ = s.do(http.MethodPost, "/api/cases/deadlines", token, gin.H{
		"matter_id": m.ID, "title": "Contestação", "due_date": time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = s.do(http.MethodPost, "/api/notifications/send", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Sent       bool     `json:"sent"`
		Recipients []string `json:"recipients"`
	}](t, env.Data)
	assert.True(t, res.Sent)
	assert.Equal(t, []string{"a@firm.test", "b@firm.test"}, res.Recipients)
	require.Len(t, s.mail.sent, 1)
	assert.Contains(t, s.mail.sent[0].Body, "Contestação")
}

func TestAudit_WritesAreLogged(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Firm", "owner@firm.test")

	s.do(http.MethodPost, "/api/crm/clients", token, gin.H{"name": "Maria"})
	s.do(http.MethodGet, "/api/crm/clients", token, nil)

	w, env := s.do(http.MethodGet, "/api/settings/audit-logs?q=crm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[struct {
		Items []struct {
			Method string `json:"method"`
			Path   string `json:"path"`
		} `json:"items"`
	}](t, env.Data)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, http.MethodPost, logs.Items[0].Method)
	assert.Equal(t, "/api/crm/clients", logs.Items[0].Path)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
