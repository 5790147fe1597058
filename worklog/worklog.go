package worklog

import (
	"errors"
	"fmt"
	"time"
)

// ServiceCode classifies the type of work performed during a shift.
type ServiceCode int

const (
	ServicePersonalCare ServiceCode = 310
	ServiceRespite      ServiceCode = 320
	ServiceCommunity    ServiceCode = 331
)

// ServiceCodes lists all valid codes in ascending order.
var ServiceCodes = []ServiceCode{ServicePersonalCare, ServiceRespite, ServiceCommunity}

func (c ServiceCode) Valid() bool {
	switch c {
	case ServicePersonalCare, ServiceRespite, ServiceCommunity:
		return true
	}
	return false
}

func (c ServiceCode) String() string {
	return fmt.Sprintf("%d", int(c))
}

// Status is the reconciliation outcome for an entry. Only StatusAccepted is a
// persistent resting state; rejected and duplicate entries are transient
// decision markers and are never retained in the store.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusDuplicate Status = "duplicate"
)

// Entry is a normalized work-shift record as reported by the source system.
type Entry struct {
	EmployeeID      string
	Date            time.Time // shift start date, midnight in the roster timezone
	StartTime       time.Time
	EndTime         time.Time
	ServiceCode     ServiceCode
	DurationMinutes int
	SourceID        string // identifier assigned by the source system
}

// PersistedEntry is an Entry with storage identity and reconciliation state.
type PersistedEntry struct {
	Entry
	ID           int64
	Status       Status
	LastSyncedAt time.Time
}

// CalendarMapping ties a natural key to its external calendar event. It makes
// calendar writes idempotent and is never a source of truth for hours. The
// fingerprint records the entry fields the event was built from, so an
// unchanged entry costs no external call on a re-run.
type CalendarMapping struct {
	EventID     string
	Fingerprint string
}

// Key identifies a logical shift independent of storage identity.
// Comparable, so it can be used directly as a map key.
type Key struct {
	EmployeeID  string
	Date        string // 2006-01-02
	StartTime   string // 15:04
	ServiceCode ServiceCode
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.EmployeeID, k.Date, k.StartTime, int(k.ServiceCode))
}

// NaturalKey returns the natural key of an entry.
func (e Entry) NaturalKey() Key {
	return Key{
		EmployeeID:  e.EmployeeID,
		Date:        e.Date.Format("2006-01-02"),
		StartTime:   e.StartTime.Format("15:04"),
		ServiceCode: e.ServiceCode,
	}
}

// SameFields reports whether two entries with the same natural key carry the
// same source data. A difference means the source changed the record and the
// stored copy must be updated.
func (e Entry) SameFields(other Entry) bool {
	return e.EndTime.Equal(other.EndTime) &&
		e.DurationMinutes == other.DurationMinutes &&
		e.SourceID == other.SourceID
}

var (
	ErrMissingEmployee = errors.New("entry has no employee id")
	ErrMissingDate     = errors.New("entry has no service date")
	ErrMissingTimes    = errors.New("entry has no start or end time")
	ErrInvalidCode     = errors.New("entry has an unknown service code")
	ErrInvertedRange   = errors.New("entry end time is not after start time")
	ErrInvalidDuration = errors.New("entry duration is not positive")
)

// Validate checks an extracted entry before it can participate in
// reconciliation. A failure skips the entry; it never aborts the batch.
func Validate(e Entry) error {
	if e.EmployeeID == "" {
		return ErrMissingEmployee
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return ErrMissingTimes
	}
	if !e.ServiceCode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCode, int(e.ServiceCode))
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrInvertedRange
	}
	if e.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// FormatMinutes renders a minute count as H:MM, the form used in reports.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
