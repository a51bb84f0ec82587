package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
)

type caseFixture struct {
	db     *gorm.DB
	r      *gin.Engine
	user   *models.User
	client *models.Client
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "firm")
	user := testutil.User(t, db, tenant.ID, models.RoleLawyer)

	cases := NewCaseHandler(db)
	crm := NewCRMHandler(db)
	r := asUser(user)
	r.POST("/matters", cases.CreateMatter)
	r.GET("/matters/:id", cases.GetMatter)
	r.PATCH("/matters/:id", cases.UpdateMatter)
	r.DELETE("/matters/:id", cases.DeleteMatter)
	r.GET("/matters/:id/activities", cases.ListActivities)
	r.POST("/hearings", cases.CreateHearing)
	r.DELETE("/clients/:id", crm.DeleteClient)

	return &caseFixture{db: db, r: r, user: user, client: testutil.Client(t, db, tenant.ID, "Maria")}
}

func (f *caseFixture) createMatter(t *testing.T) models.Matter {
	t.Helper()
	w, env := serve(t, f.r, jsonRequest(t, http.MethodPost, "/matters", gin.H{
		"client_id": f.client.ID, "title": "Reclamação trabalhista", "number": "0001234-56.2025.5.02.0001",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[struct {
		Matter models.Matter `json:"matter"`
	}](t, env).Matter
}

func TestMatter_CreateRecordsActivity(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)
	assert.Equal(t, models.MatterStatusOpen, m.Status)

	w, env := serve(t, f.r, jsonRequest(t, http.MethodGet, fmt.Sprintf("/matters/%d/activities", m.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	acts := decodeData[struct {
		Items []models.Activity `json:"items"`
	}](t, env)
	require.Len(t, acts.Items, 1)
	assert.Equal(t, "matter_opened", acts.Items[0].Kind)
}

func TestMatter_CloseSetsClosedAt(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)

	w, env := serve(t, f.r, jsonRequest(t, http.MethodPatch, fmt.Sprintf("/matters/%d", m.ID), gin.H{"status": "closed"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closed := decodeData[struct {
		Matter models.Matter `json:"matter"`
	}](t, env).Matter
	assert.Equal(t, models.MatterStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	var count int64
	require.NoError(t, f.db.Model(&models.Activity{}).
		Where("matter_id = ? AND kind = ?", m.ID, "status_changed").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMatter_RejectsBadStatus(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)

	w, env := serve(t, f.r, jsonRequest(t, http.MethodPatch, fmt.Sprintf("/matters/%d", m.ID), gin.H{"status": "won"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data)+env.Message, "invalid")
}

func TestMatter_DeleteBlockedByTimeEntries(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)
	e := testutil.TimeEntry(t, f.db, f.user.TenantID, f.user.ID, f.client.ID, "1")
	require.NoError(t, f.db.Model(e).Update("matter_id", m.ID).Error)

	w, _ := serve(t, f.r, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/matters/%d", m.ID), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, f.db.Delete(e).Error)
	w, _ = serve(t, f.r, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/matters/%d", m.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var acts int64
	require.NoError(t, f.db.Model(&models.Activity{}).Where("matter_id = ?", m.ID).Count(&acts).Error)
	assert.Zero(t, acts)
}

func TestHearing_DefaultDuration(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)

	w, env := serve(t, f.r, jsonRequest(t, http.MethodPost, "/hearings", gin.H{
		"matter_id": m.ID, "title": "Audiência de conciliação", "scheduled_at": "2025-05-20T14:00:00-03:00",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hr := decodeData[struct {
		Hearing models.Hearing `json:"hearing"`
	}](t, env).Hearing
	assert.Equal(t, 60, hr.DurationMinutes)
}

func TestClient_DeleteBlockedByMatters(t *testing.T) {
	f := newCaseFixture(t)
	m := f.createMatter(t)

	path := fmt.Sprintf("/clients/%d", f.client.ID)
	w, _ := serve(t, f.r, jsonRequest(t, http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(t, f.r, jsonRequest(t, http.MethodDelete, fmt.Sprintf("/matters/%d", m.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	e := testutil.TimeEntry(t, f.db, f.user.TenantID, f.user.ID, f.client.ID, "2")
	w, _ = serve(t, f.r, jsonRequest(t, http.MethodDelete, path, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var kept models.TimeEntry
	require.NoError(t, f.db.First(&kept, e.ID).Error)
	assert.Nil(t, kept.ClientID)
}
