package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"acumensync/faults"
	"acumensync/worklog"
)

// MappingStore persists the natural-key-to-event mapping between runs.
type MappingStore interface {
	GetMapping(key worklog.Key) (worklog.CalendarMapping, bool, error)
	PutMapping(key worklog.Key, mapping worklog.CalendarMapping) error
	DeleteMapping(key worklog.Key) error
}

// Syncer applies a reconciliation plan to the external calendar. Each entry's
// failure is isolated: one exhausted retry budget never blocks the rest.
type Syncer struct {
	Client   Client
	Mappings MappingStore
	Log      *slog.Logger

	MaxRetries     int
	InitialBackoff time.Duration
	CallTimeout    time.Duration

	EmployeeName string
	ColorID      string
	Timezone     string
}

// Result reports one sync pass.
type Result struct {
	Created   int
	Updated   int
	Deleted   int
	Unchanged int
	Failures  []error
	// SyncedKeys lists the entries whose external state is now current.
	SyncedKeys []worklog.Key
}

// Sync mirrors the accepted set onto the calendar. Every accepted entry is
// swept through the mapping: no mapping means create, a mapping with a stale
// fingerprint means update, a current fingerprint means nothing to do.
// Sweeping the whole set instead of the run's decisions lets a later run
// repair an entry whose earlier write failed; the fingerprint short-circuit
// keeps already-synced entries at zero external calls. Delete decisions remove
// the event and then the mapping; without a mapping they are a no-op.
func (s *Syncer) Sync(ctx context.Context, accepted, deletes []worklog.PersistedEntry) Result {
	var result Result

	for _, entry := range accepted {
		if err := s.syncUpsert(ctx, entry.Entry, &result); err != nil {
			result.Failures = append(result.Failures, err)
			s.Log.Warn("calendar upsert failed",
				slog.String("employee", entry.EmployeeID),
				slog.String("key", entry.NaturalKey().String()),
				slog.Any("error", err))
		}
	}

	for _, entry := range deletes {
		if err := s.syncDelete(ctx, entry.Entry, &result); err != nil {
			result.Failures = append(result.Failures, err)
			s.Log.Warn("calendar delete failed",
				slog.String("employee", entry.EmployeeID),
				slog.String("key", entry.NaturalKey().String()),
				slog.Any("error", err))
		}
	}

	return result
}

func (s *Syncer) syncUpsert(ctx context.Context, entry worklog.Entry, result *Result) error {
	key := entry.NaturalKey()
	mapping, exists, err := s.Mappings.GetMapping(key)
	if err != nil {
		return err
	}

	fingerprint := Fingerprint(entry)
	if exists && mapping.Fingerprint == fingerprint {
		result.Unchanged++
		result.SyncedKeys = append(result.SyncedKeys, key)
		return nil
	}

	event := EventForEntry(entry, s.EmployeeName, s.ColorID, s.Timezone)

	if exists {
		err := s.withRetry(ctx, "calendar update", key, func(callCtx context.Context) error {
			return s.Client.Update(callCtx, mapping.EventID, event)
		})
		if err != nil {
			return err
		}
		if err := s.Mappings.PutMapping(key, worklog.CalendarMapping{
			EventID:     mapping.EventID,
			Fingerprint: fingerprint,
		}); err != nil {
			return err
		}
		result.Updated++
		result.SyncedKeys = append(result.SyncedKeys, key)
		return nil
	}

	var eventID string
	err = s.withRetry(ctx, "calendar create", key, func(callCtx context.Context) error {
		id, createErr := s.Client.Create(callCtx, event)
		if createErr != nil {
			return createErr
		}
		eventID = id
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Mappings.PutMapping(key, worklog.CalendarMapping{
		EventID:     eventID,
		Fingerprint: fingerprint,
	}); err != nil {
		return err
	}
	result.Created++
	result.SyncedKeys = append(result.SyncedKeys, key)
	return nil
}

func (s *Syncer) syncDelete(ctx context.Context, entry worklog.Entry, result *Result) error {
	key := entry.NaturalKey()
	mapping, exists, err := s.Mappings.GetMapping(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	err = s.withRetry(ctx, "calendar delete", key, func(callCtx context.Context) error {
		return s.Client.Delete(callCtx, mapping.EventID)
	})
	if err != nil {
		return err
	}
	if err := s.Mappings.DeleteMapping(key); err != nil {
		return err
	}
	result.Deleted++
	return nil
}

// withRetry runs one external operation under bounded exponential backoff.
// Fatal errors stop immediately; transient errors retry until the budget is
// spent and then surface as an ExhaustedRetryError for this entry only.
func (s *Syncer) withRetry(ctx context.Context, op string, key worklog.Key, fn func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	if s.InitialBackoff > 0 {
		policy.InitialInterval = s.InitialBackoff
	}

	attempts := 0
	operation := func() error {
		attempts++
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if s.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		}
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if faults.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.MaxRetries)), ctx))
	if err == nil {
		return nil
	}
	if faults.IsTransient(err) {
		return &faults.ExhaustedRetryError{Op: op, Key: key.String(), Attempts: attempts, Last: err}
	}
	return err
}
