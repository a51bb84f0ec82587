package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawdesk/internal/config"
	"lawdesk/internal/models"
	"lawdesk/internal/rbac"
	"lawdesk/internal/testutil"
	"lawdesk/internal/util"
)

const testKey = "middleware-test-key"

var jwtCfg = config.JWTConfig{Secret: "s3cret", Issuer: "lawdesk", CookieName: "ld_session"}

func init() {
	gin.SetMode(gin.TestMode)
}

func session(t *testing.T, db *gorm.DB, u *models.User) (string, *models.Session) {
	t.Helper()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TenantID:  u.TenantID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(sess).Error)
	token, err := util.GenerateToken(jwtCfg.Secret, jwtCfg.Issuer, u.ID, u.TenantID, sess.ID, time.Hour)
	require.NoError(t, err)
	return token, sess
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	user := testutil.User(t, db, tenant.ID, models.RoleLawyer)
	token, sess := session(t, db, user)

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtCfg, db), func(c *gin.Context) {
		assert.Equal(t, user.ID, CurrentUser(c).ID)
		assert.Equal(t, sess.ID, CurrentSession(c).ID)
		c.String(http.StatusOK, "%d", TenantID(c))
	})

	w := get(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)

	// cookie works as well as the header
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: jwtCfg.CookieName, Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.Model(sess).Update("revoked", true).Error)
	w = get(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InactiveUser(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	user := testutil.User(t, db, tenant.ID, models.RoleLawyer)
	token, _ := session(t, db, user)
	require.NoError(t, db.Model(user).Update("active", false).Error)

	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtCfg, db), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", token).Code)
}

func TestRequirePermission(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	client := testutil.User(t, db, tenant.ID, models.RoleClient)
	token, _ := session(t, db, client)
	checker := rbac.NewChecker(db)

	r := gin.New()
	r.Use(AuthMiddleware(jwtCfg, db))
	r.GET("/cases", RequirePermission(checker, rbac.CasesView), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/billing", RequirePermission(checker, rbac.BillingView), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/cases", token).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/billing", token).Code)
}

func TestCalendarAuth(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	require.NoError(t, db.Model(&models.TenantSettings{}).
		Where("tenant_id = ?", tenant.ID).Update("calendar_token", "feed-token").Error)
	clientUser := testutil.User(t, db, tenant.ID, models.RoleClient)
	clientToken, _ := session(t, db, clientUser)
	lawyer := testutil.User(t, db, tenant.ID, models.RoleLawyer)
	lawyerToken, _ := session(t, db, lawyer)

	r := gin.New()
	r.GET("/ics", CalendarAuth(jwtCfg, db, rbac.NewChecker(db)), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", TenantID(c))
	})

	w := get(r, "/ics?token=feed-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", strings.TrimSpace(w.Body.String()))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ics?token=wrong", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ics", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ics", lawyerToken).Code)
	// the client role has no calendar.view
	assert.Equal(t, http.StatusForbidden, get(r, "/ics", clientToken).Code)
}

func TestAuditMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	user := testutil.User(t, db, tenant.ID, models.RoleAdmin)
	token, _ := session(t, db, user)

	r := gin.New()
	r.Use(AuthMiddleware(jwtCfg, db), AuditMiddleware(db, testKey))
	r.POST("/api/crm/clients", func(c *gin.Context) {
		var body map[string]any
		require.NoError(t, c.ShouldBindJSON(&body))
		assert.Equal(t, "Maria", body["name"])
		c.Status(http.StatusCreated)
	})
	r.POST("/api/profile/password", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/crm/clients", func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(path, body string) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	post("/api/crm/clients", `{"name":"Maria"}`)
	post("/api/profile/password", `{"old_password":"x","new_password":"y"}`)
	get(r, "/api/crm/clients", token)

	var logs []models.AuditLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)

	action, err := util.DecryptString(testKey, logs[0].ActionEnc)
	require.NoError(t, err)
	assert.Equal(t, `POST /api/crm/clients {"name":"Maria"}`, action)
	assert.Equal(t, http.StatusCreated, logs[0].Status)
	assert.Equal(t, tenant.ID, logs[0].TenantID)

	action, err = util.DecryptString(testKey, logs[1].ActionEnc)
	require.NoError(t, err)
	assert.Equal(t, "POST /api/profile/password", action)
}
