// Package pipeline runs the daily batch: extract per employee, reconcile
// against the store, aggregate period totals, mirror decisions into the
// calendar, and notify. All collaborators are passed in explicitly so a run
// can be exercised with substitutes.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"acumensync/acumen"
	"acumensync/calendar"
	"acumensync/config"
	"acumensync/internal/timeutil"
	"acumensync/notify"
	"acumensync/reconcile"
	"acumensync/summary"
	"acumensync/worklog"
)

// Store is the persistence the pipeline needs; *storage.SQLiteStore satisfies
// it.
type Store interface {
	ListEntries(employeeID string, win timeutil.Window) ([]worklog.PersistedEntry, error)
	ApplyChanges(inserts []worklog.Entry, updates []worklog.PersistedEntry, deleteIDs []int64) error
	TouchSynced(keys []worklog.Key, at time.Time) error
}

// Runner is the per-run context object. Build one per invocation; it holds no
// process-global state.
type Runner struct {
	Cfg       *config.Config
	Log       *slog.Logger
	Extractor acumen.Extractor
	Store     Store
	// Calendar may be nil to skip calendar sync entirely.
	Calendar calendar.Client
	Mappings calendar.MappingStore
	Notifier notify.Notifier

	// Window is the fetch window; reconciliation treats it as the complete
	// picture of the source for that range.
	Window timeutil.Window
	// Reference anchors period aggregation (its month is always reported).
	Reference time.Time
	DryRun    bool

	Now func() time.Time
	// Getenv resolves credential references; defaults to os.Getenv.
	Getenv func(string) string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Run executes the batch under the configured deadline. Extraction runs
// concurrently across employees; each employee's reconcile-and-commit is
// serialized by a per-employee lock. Already-committed employees stand even
// if the deadline expires mid-run.
func (r *Runner) Run(ctx context.Context) RunReport {
	if deadline := r.Cfg.Sync.RunDeadline; deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	report := RunReport{
		Employees: make([]EmployeeReport, len(r.Cfg.Employees)),
		DryRun:    r.DryRun,
	}

	var wg sync.WaitGroup
	for i, employee := range r.Cfg.Employees {
		wg.Add(1)
		go func(slot int, employee config.Employee) {
			defer wg.Done()
			report.Employees[slot] = r.runEmployee(ctx, employee)
		}(i, employee)
	}
	wg.Wait()

	r.Log.Info("run finished",
		slog.String("status", string(report.Status())),
		slog.Bool("dry_run", r.DryRun))
	return report
}

func (r *Runner) runEmployee(ctx context.Context, employee config.Employee) EmployeeReport {
	report := EmployeeReport{Employee: employee.Name}
	log := r.Log.With(slog.String("employee", employee.Name))

	creds := acumen.Credentials{
		Email:    r.getenv(employee.EmailEnv),
		Password: r.getenv(employee.PasswordEnv),
	}

	entries, err := r.Extractor.Fetch(ctx, employee.Name, creds, r.Window)
	if err != nil {
		log.Error("extraction failed", slog.Any("error", err))
		report.Err = err
		return report
	}
	log.Info("extracted entries", slog.Int("count", len(entries)))

	// Single-writer discipline per employee: reconcile decisions and their
	// commit must not interleave with another pass over the same key space.
	lock := r.employeeLock(employee.Name)
	lock.Lock()
	defer lock.Unlock()

	persisted, err := r.Store.ListEntries(employee.Name, r.Window)
	if err != nil {
		report.Err = err
		return report
	}

	plan := reconcile.Reconcile(employee.Name, entries, persisted)
	report.Inserted = len(plan.Inserts)
	report.Updated = len(plan.Updates)
	report.Deleted = len(plan.Deletes)
	report.Duplicates = len(plan.Duplicates)
	report.RejectedValidation = len(plan.Invalid)

	for _, invalid := range plan.Invalid {
		log.Warn("entry rejected by validation", slog.Any("error", invalid.Reason))
	}

	log.Info("reconciled",
		slog.Int("insert", report.Inserted),
		slog.Int("update", report.Updated),
		slog.Int("delete", report.Deleted),
		slog.Int("duplicate", report.Duplicates),
		slog.Int("invalid", report.RejectedValidation))

	if r.DryRun {
		r.notify(ctx, log, employee, persisted)
		return report
	}

	if err := r.Store.ApplyChanges(plan.Inserts, plan.Updates, plan.DeleteIDs()); err != nil {
		report.Err = err
		return report
	}

	accepted, err := r.Store.ListEntries(employee.Name, r.Window)
	if err != nil {
		report.Err = err
		return report
	}
	if err := reconcile.CheckInvariants(accepted); err != nil {
		// A conflict here is a data-model violation; log it, keep going.
		log.Error("invariant violation after reconcile", slog.Any("error", err))
	}

	if r.Calendar != nil {
		syncer := &calendar.Syncer{
			Client:         r.Calendar,
			Mappings:       r.Mappings,
			Log:            log,
			MaxRetries:     r.Cfg.Sync.MaxRetries,
			InitialBackoff: r.Cfg.Sync.InitialBackoff,
			CallTimeout:    r.Cfg.Sync.CallTimeout,
			EmployeeName:   employee.Name,
			ColorID:        employee.ColorID,
			Timezone:       r.Cfg.Calendar.Timezone,
		}
		result := syncer.Sync(ctx, accepted, plan.Deletes)
		report.CalendarFailures = len(result.Failures)
		if err := r.Store.TouchSynced(result.SyncedKeys, r.now()); err != nil {
			log.Warn("stamping sync timestamps failed", slog.Any("error", err))
		}
		log.Info("calendar sync",
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated),
			slog.Int("deleted", result.Deleted),
			slog.Int("unchanged", result.Unchanged),
			slog.Int("failed", len(result.Failures)))
	}

	r.notify(ctx, log, employee, accepted)
	return report
}

func (r *Runner) notify(ctx context.Context, log *slog.Logger, employee config.Employee, accepted []worklog.PersistedEntry) {
	if r.Notifier == nil {
		return
	}
	summaries := summary.Aggregate(employee.Name, accepted, r.Reference)
	if err := r.Notifier.Send(ctx, employee.NotifyEmail, summaries); err != nil {
		log.Warn("notification failed", slog.Any("error", err))
	}
}

func (r *Runner) employeeLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	return lock
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}
