// Package reconcile diffs freshly extracted entries against the persisted set
// for one employee and decides inserts, updates, and deletes. The decision
// function is pure: identical inputs always yield an identical plan, so a
// re-run against an unchanged source is safe.
package reconcile

import (
	"sort"

	"acumensync/faults"
	"acumensync/worklog"
)

// InvalidEntry records a validation failure for the run report. The entry is
// skipped; it never reaches the store.
type InvalidEntry struct {
	Entry  worklog.Entry
	Reason error
}

// Plan is the decision set for one employee's reconciliation pass.
type Plan struct {
	EmployeeID string

	// Inserts are entries the source reports but the store does not.
	Inserts []worklog.Entry
	// Updates are stored entries whose source record changed; the source
	// value wins and the row id is preserved.
	Updates []worklog.PersistedEntry
	// Deletes are stored entries the source no longer reports inside the
	// fetch window. They are treated as rejected and purged, and their
	// calendar mapping is torn down.
	Deletes []worklog.PersistedEntry
	// Duplicates are extra new entries sharing an already-seen natural key.
	// They are reported, never persisted.
	Duplicates []worklog.Entry
	// Invalid are entries that failed validation.
	Invalid []InvalidEntry
}

// Empty reports whether the plan carries no decisions at all.
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// DeleteIDs returns the row ids marked for deletion.
func (p Plan) DeleteIDs() []int64 {
	ids := make([]int64, 0, len(p.Deletes))
	for _, entry := range p.Deletes {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Reconcile compares newEntries against persistedEntries and produces the
// decision plan. Both inputs are treated as the complete picture of the fetch
// window: a persisted entry absent from newEntries is a deletion.
func Reconcile(employeeID string, newEntries []worklog.Entry, persistedEntries []worklog.PersistedEntry) Plan {
	plan := Plan{EmployeeID: employeeID}

	persistedByKey := make(map[worklog.Key]worklog.PersistedEntry, len(persistedEntries))
	for _, entry := range persistedEntries {
		persistedByKey[entry.NaturalKey()] = entry
	}

	seen := make(map[worklog.Key]struct{}, len(newEntries))
	invalidKeys := make(map[worklog.Key]struct{})
	for _, entry := range newEntries {
		if err := worklog.Validate(entry); err != nil {
			plan.Invalid = append(plan.Invalid, InvalidEntry{
				Entry: entry,
				Reason: &faults.ValidationError{
					Key:    entry.NaturalKey().String(),
					Reason: err,
				},
			})
			invalidKeys[entry.NaturalKey()] = struct{}{}
			continue
		}

		key := entry.NaturalKey()
		if _, dup := seen[key]; dup {
			plan.Duplicates = append(plan.Duplicates, entry)
			continue
		}
		seen[key] = struct{}{}

		stored, exists := persistedByKey[key]
		if !exists {
			plan.Inserts = append(plan.Inserts, entry)
			continue
		}
		if !stored.SameFields(entry) {
			updated := stored
			updated.Entry = entry
			updated.ID = stored.ID
			plan.Updates = append(plan.Updates, updated)
		}
	}

	for _, entry := range persistedEntries {
		key := entry.NaturalKey()
		if _, present := seen[key]; present {
			continue
		}
		// A malformed row still proves the source reports this shift; keep
		// the stored copy instead of treating it as disappeared.
		if _, invalid := invalidKeys[key]; invalid {
			continue
		}
		plan.Deletes = append(plan.Deletes, entry)
	}

	sortPlan(&plan)
	return plan
}

// sortPlan orders every slice by natural key so repeated runs over identical
// inputs produce byte-identical plans regardless of map iteration order.
func sortPlan(plan *Plan) {
	sort.Slice(plan.Inserts, func(i, j int) bool {
		return keyLess(plan.Inserts[i].NaturalKey(), plan.Inserts[j].NaturalKey())
	})
	sort.Slice(plan.Updates, func(i, j int) bool {
		return keyLess(plan.Updates[i].NaturalKey(), plan.Updates[j].NaturalKey())
	})
	sort.Slice(plan.Deletes, func(i, j int) bool {
		return keyLess(plan.Deletes[i].NaturalKey(), plan.Deletes[j].NaturalKey())
	})
	sort.Slice(plan.Duplicates, func(i, j int) bool {
		return keyLess(plan.Duplicates[i].NaturalKey(), plan.Duplicates[j].NaturalKey())
	})
}

func keyLess(a, b worklog.Key) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ServiceCode < b.ServiceCode
}

// CheckInvariants verifies the stored set after a pass: at most one accepted
// entry per natural key. A violation is a ConflictDecisionError; callers log
// it and continue rather than crash.
func CheckInvariants(persisted []worklog.PersistedEntry) error {
	seen := make(map[worklog.Key]struct{}, len(persisted))
	for _, entry := range persisted {
		key := entry.NaturalKey()
		if _, dup := seen[key]; dup {
			return &faults.ConflictDecisionError{
				Key:    key.String(),
				Detail: "more than one accepted entry shares this natural key",
			}
		}
		seen[key] = struct{}{}
	}
	return nil
}
