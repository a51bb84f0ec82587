// Package calendar renders hearings and deadlines as an iCalendar feed.
package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"lawdesk/internal/models"
)

const prodID = "-//lawdesk//calendar//PT"

// Feed is one tenant's calendar export.
type Feed struct {
	Name      string
	Host      string // used in UIDs, e.g. "lawdesk.example"
	Hearings  []models.Hearing
	Deadlines []models.Deadline
	Now       time.Time
}

// Calendar builds the VCALENDAR. Hearings are timed events; deadlines are
// all-day events on their due date. Completed deadlines are left out.
func (f *Feed) Calendar() *ics.Calendar {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	host := f.Host
	if host == "" {
		host = "lawdesk"
	}

	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	for _, h := range f.Hearings {
		dur := h.DurationMinutes
		if dur <= 0 {
			dur = 60
		}
		ev := cal.AddEvent(fmt.Sprintf("hearing-%d@%s", h.ID, host))
		ev.SetDtStampTime(now)
		ev.SetStartAt(h.ScheduledAt)
		ev.SetEndAt(h.ScheduledAt.Add(time.Duration(dur) * time.Minute))
		ev.SetSummary("Audiência: " + h.Title)
		if h.Location != "" {
			ev.SetLocation(h.Location)
		}
		if h.Notes != "" {
			ev.SetDescription(h.Notes)
		}
	}

	for _, d := range f.Deadlines {
		if d.Completed {
			continue
		}
		day := d.DueDate.UTC()
		ev := cal.AddEvent(fmt.Sprintf("deadline-%d@%s", d.ID, host))
		ev.SetDtStampTime(now)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary("Prazo: " + d.Title)
		if d.Notes != "" {
			ev.SetDescription(d.Notes)
		}
	}
	return cal
}

// Render serializes the feed with CRLF line endings and folded lines.
func (f *Feed) Render() string {
	return f.Calendar().Serialize()
}
