package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawdesk/internal/models"
	"lawdesk/internal/testutil"
	"lawdesk/internal/util"
)

func TestUpcoming(t *testing.T) {
	db := testutil.NewDB(t)
	tenant := testutil.Tenant(t, db, "acme")
	client := testutil.Client(t, db, tenant.ID, "Maria")
	matter := testutil.Matter(t, db, tenant.ID, client.ID, "Ação de cobrança")
	other := testutil.Tenant(t, db, "other")
	otherClient := testutil.Client(t, db, other.ID, "X")
	otherMatter := testutil.Matter(t, db, other.ID, otherClient.ID, "Y")

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return now.AddDate(0, 0, n) }

	rows := []any{
		&models.Deadline{TenantID: tenant.ID, MatterID: matter.ID, Title: "overdue", DueDate: day(-2)},
		&models.Deadline{TenantID: tenant.ID, MatterID: matter.ID, Title: "soon", DueDate: day(3)},
		&models.Deadline{TenantID: tenant.ID, MatterID: matter.ID, Title: "done", DueDate: day(1), Completed: true},
		&models.Deadline{TenantID: tenant.ID, MatterID: matter.ID, Title: "later", DueDate: day(30)},
		&models.Deadline{TenantID: other.ID, MatterID: otherMatter.ID, Title: "foreign", DueDate: day(1)},
		&models.Hearing{TenantID: tenant.ID, MatterID: matter.ID, Title: "past", ScheduledAt: day(-1), DurationMinutes: 60},
		&models.Hearing{TenantID: tenant.ID, MatterID: matter.ID, Title: "next", ScheduledAt: day(5), DurationMinutes: 60},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}

	d, err := Upcoming(context.Background(), db, tenant.ID, 7, now)
	require.NoError(t, err)

	require.Len(t, d.Deadlines, 2)
	assert.Equal(t, "overdue", d.Deadlines[0].Title)
	assert.Equal(t, "soon", d.Deadlines[1].Title)
	require.Len(t, d.Hearings, 1)
	assert.Equal(t, "next", d.Hearings[0].Title)

	text := d.Text("Acme")
	assert.Contains(t, text, "overdue (vencido)")
	assert.Contains(t, text, "Audiências:")
}

func TestDigest_EmptyText(t *testing.T) {
	d := Digest{From: time.Now(), To: time.Now()}
	assert.True(t, d.Empty())
	assert.Contains(t, d.Text("Acme"), "Nenhum prazo")
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, ParseRecipients(" a@x.com, ,b@x.com,"))
	assert.Nil(t, ParseRecipients(""))
}

func TestSenderFromSettings(t *testing.T) {
	s := &models.TenantSettings{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "u"}
	_, err := SenderFromSettings(s, "key")
	assert.ErrorIs(t, err, ErrNotConfigured)

	enc, err := util.EncryptString("key", "pw")
	require.NoError(t, err)
	s.SMTPPasswordEnc = enc
	s.SMTPFrom = "firm@example.com"

	sender, err := SenderFromSettings(s, "key")
	require.NoError(t, err)
	assert.Equal(t, "pw", sender.Password)
	assert.Equal(t, 587, sender.Port)
}

func TestBuildMessage(t *testing.T) {
	m, err := BuildMessage(Message{
		From:    "firm@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Agenda da semana",
		Body:    "linha 1\nlinha 2",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: Agenda da semana\r\n")
	assert.Contains(t, raw, "a@example.com")
	assert.Contains(t, raw, "b@example.com")
	assert.Contains(t, raw, "linha 2")
}

func TestBuildMessage_RejectsBadAddresses(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"no recipients", Message{From: "firm@example.com"}},
		{"header injection in from", Message{From: "firm@example.com\r\nBcc: x@evil.test", To: []string{"a@example.com"}}},
		{"malformed recipient", Message{From: "firm@example.com", To: []string{"not an address"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildMessage(tc.msg)
			assert.Error(t, err)
		})
	}
}

func TestSMTPSender_Client(t *testing.T) {
	for _, port := range []int{465, 587} {
		s := &SMTPSender{Host: "smtp.example.com", Port: port, Username: "u", Password: "p"}
		c, err := s.client()
		require.NoError(t, err, "port %d", port)
		assert.NotNil(t, c)
	}
}
