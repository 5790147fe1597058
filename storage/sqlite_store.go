package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"acumensync/internal/timeutil"
	"acumensync/worklog"
)

type SQLiteStore struct {
	db *sql.DB
}

var ErrEntryNotFound = errors.New("entry not found")

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	// Only accepted rows live here; the natural-key UNIQUE constraint backs
	// the at-most-one-accepted-entry-per-key invariant.
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id TEXT NOT NULL,
	service_date TEXT NOT NULL,
	start_clock TEXT NOT NULL,
	start_datetime TEXT NOT NULL,
	end_datetime TEXT NOT NULL,
	service_code INTEGER NOT NULL CHECK(service_code IN (310, 320, 331)),
	duration_minutes INTEGER NOT NULL CHECK(duration_minutes > 0),
	source_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'accepted' CHECK(status = 'accepted'),
	last_synced_at TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(employee_id, service_date, start_clock, service_code)
);

CREATE TABLE IF NOT EXISTS calendar_mappings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	natural_key TEXT NOT NULL UNIQUE,
	event_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ListEntries returns the accepted entries for one employee whose service date
// falls inside the window, ordered by natural key.
func (s *SQLiteStore) ListEntries(employeeID string, win timeutil.Window) ([]worklog.PersistedEntry, error) {
	const query = `
SELECT
	id,
	employee_id,
	service_date,
	start_datetime,
	end_datetime,
	service_code,
	duration_minutes,
	source_id,
	status,
	last_synced_at
FROM entries
WHERE employee_id = ? AND service_date >= ? AND service_date <= ?
ORDER BY service_date, start_clock, service_code;
`

	rows, err := s.db.Query(
		query,
		employeeID,
		win.Start.Format("2006-01-02"),
		win.End.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]worklog.PersistedEntry, 0, 64)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

func scanEntry(rows *sql.Rows) (worklog.PersistedEntry, error) {
	var (
		entry    worklog.PersistedEntry
		dateRaw  string
		startRaw string
		endRaw   string
		code     int
		status   string
		syncedAt string
	)

	if err := rows.Scan(
		&entry.ID,
		&entry.EmployeeID,
		&dateRaw,
		&startRaw,
		&endRaw,
		&code,
		&entry.DurationMinutes,
		&entry.SourceID,
		&status,
		&syncedAt,
	); err != nil {
		return worklog.PersistedEntry{}, fmt.Errorf("scan entry: %w", err)
	}

	entry.ServiceCode = worklog.ServiceCode(code)
	entry.Status = worklog.Status(status)

	var err error
	entry.StartTime, err = time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return worklog.PersistedEntry{}, fmt.Errorf("parse start datetime %q: %w", startRaw, err)
	}
	entry.EndTime, err = time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return worklog.PersistedEntry{}, fmt.Errorf("parse end datetime %q: %w", endRaw, err)
	}
	entry.Date, err = time.ParseInLocation("2006-01-02", dateRaw, entry.StartTime.Location())
	if err != nil {
		return worklog.PersistedEntry{}, fmt.Errorf("parse service date %q: %w", dateRaw, err)
	}
	if syncedAt != "" {
		entry.LastSyncedAt, err = time.Parse(time.RFC3339, syncedAt)
		if err != nil {
			return worklog.PersistedEntry{}, fmt.Errorf("parse last synced at %q: %w", syncedAt, err)
		}
	}

	return entry, nil
}

// ApplyChanges commits one employee's reconciliation decisions atomically:
// inserts of newly accepted entries, in-place updates where the source record
// changed, and deletion of rows the source no longer reports.
func (s *SQLiteStore) ApplyChanges(inserts []worklog.Entry, updates []worklog.PersistedEntry, deleteIDs []int64) error {
	if len(inserts) == 0 && len(updates) == 0 && len(deleteIDs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	const insertStmt = `
INSERT INTO entries (
	employee_id,
	service_date,
	start_clock,
	start_datetime,
	end_datetime,
	service_code,
	duration_minutes,
	source_id,
	status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`

	for _, entry := range inserts {
		_, err := tx.Exec(
			insertStmt,
			entry.EmployeeID,
			entry.Date.Format("2006-01-02"),
			entry.StartTime.Format("15:04"),
			entry.StartTime.Format(time.RFC3339),
			entry.EndTime.Format(time.RFC3339),
			int(entry.ServiceCode),
			entry.DurationMinutes,
			entry.SourceID,
			string(worklog.StatusAccepted),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert entry %s: %w", entry.NaturalKey(), err)
		}
	}

	const updateStmt = `
UPDATE entries
SET end_datetime = ?,
	duration_minutes = ?,
	source_id = ?
WHERE id = ?;`

	for _, entry := range updates {
		res, err := tx.Exec(
			updateStmt,
			entry.EndTime.Format(time.RFC3339),
			entry.DurationMinutes,
			entry.SourceID,
			entry.ID,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update entry %d: %w", entry.ID, err)
		}
		rows, err := res.RowsAffected()
		if err == nil && rows == 0 {
			_ = tx.Rollback()
			return fmt.Errorf("update entry %d: %w", entry.ID, ErrEntryNotFound)
		}
	}

	for _, id := range deleteIDs {
		if _, err := tx.Exec(`DELETE FROM entries WHERE id = ?;`, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete entry %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// TouchSynced stamps the sync timestamp for the rows behind the given keys.
func (s *SQLiteStore) TouchSynced(keys []worklog.Key, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	const stampStmt = `
UPDATE entries
SET last_synced_at = ?
WHERE employee_id = ? AND service_date = ? AND start_clock = ? AND service_code = ?;`

	stamp := at.Format(time.RFC3339)
	for _, key := range keys {
		if _, err := tx.Exec(stampStmt, stamp, key.EmployeeID, key.Date, key.StartTime, int(key.ServiceCode)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("stamp entry %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync stamps: %w", err)
	}
	return nil
}

// GetMapping looks up the calendar mapping recorded for a natural key.
func (s *SQLiteStore) GetMapping(key worklog.Key) (worklog.CalendarMapping, bool, error) {
	var mapping worklog.CalendarMapping
	err := s.db.QueryRow(
		`SELECT event_id, fingerprint FROM calendar_mappings WHERE natural_key = ?;`,
		key.String(),
	).Scan(&mapping.EventID, &mapping.Fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worklog.CalendarMapping{}, false, nil
		}
		return worklog.CalendarMapping{}, false, fmt.Errorf("query mapping %s: %w", key, err)
	}
	return mapping, true, nil
}

// PutMapping records (or replaces) the calendar mapping for a natural key.
func (s *SQLiteStore) PutMapping(key worklog.Key, mapping worklog.CalendarMapping) error {
	_, err := s.db.Exec(
		`INSERT INTO calendar_mappings (natural_key, event_id, fingerprint) VALUES (?, ?, ?)
		 ON CONFLICT(natural_key) DO UPDATE SET event_id = excluded.event_id, fingerprint = excluded.fingerprint;`,
		key.String(),
		mapping.EventID,
		mapping.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("put mapping %s: %w", key, err)
	}
	return nil
}

// DeleteMapping removes the mapping for a natural key. Missing rows are a
// no-op: the mapping is already absent.
func (s *SQLiteStore) DeleteMapping(key worklog.Key) error {
	if _, err := s.db.Exec(`DELETE FROM calendar_mappings WHERE natural_key = ?;`, key.String()); err != nil {
		return fmt.Errorf("delete mapping %s: %w", key, err)
	}
	return nil
}

// ListMappings returns every stored calendar mapping keyed by natural key.
func (s *SQLiteStore) ListMappings() (map[string]worklog.CalendarMapping, error) {
	rows, err := s.db.Query(`SELECT natural_key, event_id, fingerprint FROM calendar_mappings;`)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]worklog.CalendarMapping)
	for rows.Next() {
		var key string
		var mapping worklog.CalendarMapping
		if err := rows.Scan(&key, &mapping.EventID, &mapping.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings[key] = mapping
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return mappings, nil
}

// CountMappings returns the number of stored calendar mappings.
func (s *SQLiteStore) CountMappings() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM calendar_mappings;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return count, nil
}
