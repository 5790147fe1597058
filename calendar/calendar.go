// Package calendar mirrors accepted work entries into an external calendar.
// Idempotency is enforced entirely by the locally persisted entry-to-event
// mapping; the external calendar is never queried to decide whether a write
// is needed.
package calendar

import (
	"context"
	"fmt"
	"time"

	"acumensync/worklog"
)

// Event is the provider-independent event representation.
type Event struct {
	Summary  string
	Start    time.Time
	End      time.Time
	Timezone string
	ColorID  string
}

// Client is the capability contract for the external calendar.
type Client interface {
	Create(ctx context.Context, event Event) (string, error)
	Update(ctx context.Context, eventID string, event Event) error
	Delete(ctx context.Context, eventID string) error
}

// EventForEntry builds the calendar event for one accepted entry. The summary
// carries the employee name, service code, and shift length.
func EventForEntry(entry worklog.Entry, employeeName, colorID, timezone string) Event {
	return Event{
		Summary: fmt.Sprintf(
			"%s (%d) %shrs",
			employeeName,
			int(entry.ServiceCode),
			worklog.FormatMinutes(entry.DurationMinutes),
		),
		Start:    entry.StartTime,
		End:      entry.EndTime,
		Timezone: timezone,
		ColorID:  colorID,
	}
}

// Fingerprint condenses the event-relevant fields of an entry. A matching
// fingerprint in the mapping store means the external event is already
// current and no write is issued.
func Fingerprint(entry worklog.Entry) string {
	return fmt.Sprintf(
		"%s|%s|%d|%d",
		entry.StartTime.UTC().Format(time.RFC3339),
		entry.EndTime.UTC().Format(time.RFC3339),
		int(entry.ServiceCode),
		entry.DurationMinutes,
	)
}
