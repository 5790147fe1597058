package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"acumensync/faults"
	"acumensync/worklog"
)

type fakeClient struct {
	creates int
	updates int
	deletes int
	nextID  int
	fail    error
	// failFor limits the injected failure to a specific event summary.
	failFor string
}

func (c *fakeClient) Create(_ context.Context, event Event) (string, error) {
	if c.fail != nil && (c.failFor == "" || c.failFor == event.Summary) {
		return "", c.fail
	}
	c.creates++
	c.nextID++
	return string(rune('a' + c.nextID)), nil
}

func (c *fakeClient) Update(_ context.Context, _ string, event Event) error {
	if c.fail != nil && (c.failFor == "" || c.failFor == event.Summary) {
		return c.fail
	}
	c.updates++
	return nil
}

func (c *fakeClient) Delete(_ context.Context, _ string) error {
	if c.fail != nil && c.failFor == "" {
		return c.fail
	}
	c.deletes++
	return nil
}

func (c *fakeClient) calls() int { return c.creates + c.updates + c.deletes }

type memoryMappings struct {
	entries map[worklog.Key]worklog.CalendarMapping
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{entries: make(map[worklog.Key]worklog.CalendarMapping)}
}

func (m *memoryMappings) GetMapping(key worklog.Key) (worklog.CalendarMapping, bool, error) {
	mapping, ok := m.entries[key]
	return mapping, ok, nil
}

func (m *memoryMappings) PutMapping(key worklog.Key, mapping worklog.CalendarMapping) error {
	m.entries[key] = mapping
	return nil
}

func (m *memoryMappings) DeleteMapping(key worklog.Key) error {
	delete(m.entries, key)
	return nil
}

func testEntry(t *testing.T, day int, clock string, minutes int) worklog.Entry {
	t.Helper()
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		t.Fatalf("parse clock %q: %v", clock, err)
	}
	start := time.Date(2026, 7, day, parsed.Hour(), parsed.Minute(), 0, 0, time.Local)
	return worklog.Entry{
		EmployeeID:      "E",
		Date:            time.Date(2026, 7, day, 0, 0, 0, 0, time.Local),
		StartTime:       start,
		EndTime:         start.Add(time.Duration(minutes) * time.Minute),
		ServiceCode:     worklog.ServiceRespite,
		DurationMinutes: minutes,
	}
}

func acceptedSet(entries ...worklog.Entry) []worklog.PersistedEntry {
	out := make([]worklog.PersistedEntry, 0, len(entries))
	for i, entry := range entries {
		out = append(out, worklog.PersistedEntry{Entry: entry, ID: int64(i + 1), Status: worklog.StatusAccepted})
	}
	return out
}

func newTestSyncer(client Client, mappings MappingStore) *Syncer {
	return &Syncer{
		Client:         client,
		Mappings:       mappings,
		Log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		EmployeeName:   "E",
		ColorID:        "9",
		Timezone:       "America/Los_Angeles",
	}
}

func TestSync_AcceptedEntryCreatesEventAndMapping(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	mappings := newMemoryMappings()
	syncer := newTestSyncer(client, mappings)

	entry := testEntry(t, 5, "09:00", 120)
	result := syncer.Sync(context.Background(), acceptedSet(entry), nil)

	if result.Created != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok, _ := mappings.GetMapping(entry.NaturalKey()); !ok {
		t.Fatalf("expected a mapping after create")
	}
}

func TestSync_RerunIssuesZeroExternalCalls(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	mappings := newMemoryMappings()
	syncer := newTestSyncer(client, mappings)

	accepted := acceptedSet(
		testEntry(t, 5, "09:00", 120),
		testEntry(t, 6, "10:00", 60),
	)

	first := syncer.Sync(context.Background(), accepted, nil)
	if first.Created != 2 {
		t.Fatalf("expected two creates on first run, got %+v", first)
	}
	callsAfterFirst := client.calls()

	second := syncer.Sync(context.Background(), accepted, nil)
	if client.calls() != callsAfterFirst {
		t.Fatalf("second run issued %d additional calls", client.calls()-callsAfterFirst)
	}
	if second.Unchanged != 2 || second.Created != 0 || second.Updated != 0 {
		t.Fatalf("second run should report unchanged entries, got %+v", second)
	}
}

func TestSync_StaleFingerprintUpdatesExistingEvent(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	mappings := newMemoryMappings()
	syncer := newTestSyncer(client, mappings)

	entry := testEntry(t, 5, "09:00", 120)
	if err := mappings.PutMapping(entry.NaturalKey(), worklog.CalendarMapping{
		EventID:     "m1",
		Fingerprint: "stale",
	}); err != nil {
		t.Fatalf("seed mapping: %v", err)
	}

	result := syncer.Sync(context.Background(), acceptedSet(entry), nil)

	if client.creates != 0 || client.updates != 1 {
		t.Fatalf("expected an update of the existing event, got creates=%d updates=%d", client.creates, client.updates)
	}
	if result.Updated != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	mapping, _, _ := mappings.GetMapping(entry.NaturalKey())
	if mapping.EventID != "m1" {
		t.Fatalf("event id must be preserved on update, got %q", mapping.EventID)
	}
	if mapping.Fingerprint != Fingerprint(entry) {
		t.Fatalf("fingerprint must be refreshed after update")
	}
}

func TestSync_FailedCreateRepairedOnNextRun(t *testing.T) {
	t.Parallel()

	mappings := newMemoryMappings()
	entry := testEntry(t, 5, "09:00", 120)
	accepted := acceptedSet(entry)

	failing := &fakeClient{fail: faults.Transient("calendar create", errors.New("rate limited"))}
	first := newTestSyncer(failing, mappings).Sync(context.Background(), accepted, nil)
	if len(first.Failures) != 1 || first.Created != 0 {
		t.Fatalf("expected the first run to fail, got %+v", first)
	}
	if _, ok, _ := mappings.GetMapping(entry.NaturalKey()); ok {
		t.Fatalf("failed create must not record a mapping")
	}

	healthy := &fakeClient{}
	second := newTestSyncer(healthy, mappings).Sync(context.Background(), accepted, nil)
	if second.Created != 1 || len(second.Failures) != 0 {
		t.Fatalf("healthy rerun must create the missing event, got %+v", second)
	}
	if _, ok, _ := mappings.GetMapping(entry.NaturalKey()); !ok {
		t.Fatalf("expected a mapping after the repair run")
	}
}

func TestSync_DeletePropagation(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	mappings := newMemoryMappings()
	syncer := newTestSyncer(client, mappings)

	entry := testEntry(t, 5, "09:00", 120)
	if err := mappings.PutMapping(entry.NaturalKey(), worklog.CalendarMapping{EventID: "m1"}); err != nil {
		t.Fatalf("seed mapping: %v", err)
	}

	deletes := acceptedSet(entry)
	result := syncer.Sync(context.Background(), nil, deletes)

	if client.deletes != 1 || result.Deleted != 1 {
		t.Fatalf("expected external event deletion, got %+v", result)
	}
	if _, ok, _ := mappings.GetMapping(entry.NaturalKey()); ok {
		t.Fatalf("mapping must be removed after delete")
	}

	// Deleting again without a mapping is a no-op.
	again := syncer.Sync(context.Background(), nil, deletes)
	if client.deletes != 1 || again.Deleted != 0 || len(again.Failures) != 0 {
		t.Fatalf("delete without mapping must be a no-op, got %+v", again)
	}
}

func TestSync_ExhaustedRetriesIsolatedPerEntry(t *testing.T) {
	t.Parallel()

	failing := testEntry(t, 5, "09:00", 120)
	healthy := testEntry(t, 6, "10:00", 60)

	client := &fakeClient{
		fail:    faults.Transient("calendar create", errors.New("rate limited")),
		failFor: EventForEntry(failing, "E", "9", "America/Los_Angeles").Summary,
	}
	mappings := newMemoryMappings()
	syncer := newTestSyncer(client, mappings)

	result := syncer.Sync(context.Background(), acceptedSet(failing, healthy), nil)

	if len(result.Failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(result.Failures))
	}
	var exhausted *faults.ExhaustedRetryError
	if !errors.As(result.Failures[0], &exhausted) {
		t.Fatalf("expected ExhaustedRetryError, got %v", result.Failures[0])
	}
	if result.Created != 1 {
		t.Fatalf("healthy entry must still sync, got %+v", result)
	}
	if _, ok, _ := mappings.GetMapping(failing.NaturalKey()); ok {
		t.Fatalf("failed create must not record a mapping")
	}
}

func TestSync_FatalErrorNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := &countingFailClient{err: faults.Fatal("calendar create", errors.New("forbidden")), attempts: &attempts}
	syncer := newTestSyncer(client, newMemoryMappings())

	result := syncer.Sync(context.Background(), acceptedSet(testEntry(t, 5, "09:00", 120)), nil)

	if len(result.Failures) != 1 {
		t.Fatalf("expected a failure, got %+v", result)
	}
	if attempts != 1 {
		t.Fatalf("fatal error must not be retried, saw %d attempts", attempts)
	}
}

type countingFailClient struct {
	err      error
	attempts *int
}

func (c *countingFailClient) Create(context.Context, Event) (string, error) {
	*c.attempts++
	return "", c.err
}

func (c *countingFailClient) Update(context.Context, string, Event) error {
	*c.attempts++
	return c.err
}

func (c *countingFailClient) Delete(context.Context, string) error {
	*c.attempts++
	return c.err
}
