// Package notify collects upcoming deadlines and hearings and mails them as
// a digest.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"lawdesk/internal/models"
)

const (
	DefaultDaysAhead = 7
	MaxDaysAhead     = 90
)

// Digest is the upcoming work for one tenant.
type Digest struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Deadlines []models.Deadline `json:"deadlines"`
	Hearings  []models.Hearing  `json:"hearings"`
}

// Empty reports whether there is nothing to notify about.
func (d *Digest) Empty() bool {
	return len(d.Deadlines) == 0 && len(d.Hearings) == 0
}

// Upcoming returns open deadlines due and hearings scheduled between now and
// now + days. Overdue open deadlines are included too.
func Upcoming(ctx context.Context, db *gorm.DB, tenantID uint, days int, now time.Time) (*Digest, error) {
	if days <= 0 {
		days = DefaultDaysAhead
	}
	if days > MaxDaysAhead {
		days = MaxDaysAhead
	}
	until := now.AddDate(0, 0, days)

	d := &Digest{From: now, To: until}
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND completed = ? AND due_date <= ?", tenantID, false, until).
		Order("due_date ASC, id ASC").
		Find(&d.Deadlines).Error; err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	if err := db.WithContext(ctx).
		Where("tenant_id = ? AND scheduled_at >= ? AND scheduled_at <= ?", tenantID, now, until).
		Order("scheduled_at ASC, id ASC").
		Find(&d.Hearings).Error; err != nil {
		return nil, fmt.Errorf("list hearings: %w", err)
	}
	return d, nil
}

// Text renders the digest as a plain-text email body.
func (d *Digest) Text(firm string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: agenda de %s a %s\n\n", firm, d.From.Format("02/01/2006"), d.To.Format("02/01/2006"))

	if len(d.Deadlines) > 0 {
		b.WriteString("Prazos:\n")
		for _, dl := range d.Deadlines {
			mark := ""
			if dl.DueDate.Before(d.From) {
				mark = " (vencido)"
			}
			fmt.Fprintf(&b, "  - %s  %s%s\n", dl.DueDate.Format("02/01/2006"), dl.Title, mark)
		}
		b.WriteString("\n")
	}
	if len(d.Hearings) > 0 {
		b.WriteString("Audiências:\n")
		for _, h := range d.Hearings {
			fmt.Fprintf(&b, "  - %s  %s", h.ScheduledAt.Format("02/01/2006 15:04"), h.Title)
			if h.Location != "" {
				fmt.Fprintf(&b, " @ %s", h.Location)
			}
			b.WriteString("\n")
		}
	}
	if d.Empty() {
		b.WriteString("Nenhum prazo ou audiência no período.\n")
	}
	return b.String()
}

// ParseRecipients splits a comma separated address list, dropping blanks.
func ParseRecipients(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
