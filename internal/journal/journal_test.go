package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dl-alexandre/gdsync/internal/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []types.SyncRecord{
		{Timestamp: base, Operation: "create", Name: "a.txt", Outcome: types.OutcomeSuccess, TraceID: "t1"},
		{Timestamp: base.Add(time.Second), Operation: "replace", Name: "a.txt", Outcome: types.OutcomeFailed, Detail: "PARTIAL_REPLACE_FAILURE"},
		{Timestamp: base.Add(2 * time.Second), Operation: "delete", Name: "b.txt", Outcome: types.OutcomeSuccess},
	}
	for _, rec := range records {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Name != "b.txt" || got[0].Operation != "delete" {
		t.Errorf("newest record = %+v", got[0])
	}
	if got[1].Outcome != types.OutcomeFailed || got[1].Detail != "PARTIAL_REPLACE_FAILURE" {
		t.Errorf("second record = %+v", got[1])
	}
	if !got[1].Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("timestamp = %v", got[1].Timestamp)
	}
}

func TestJournal_ForName(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	j.Report(ctx, types.SyncRecord{Operation: "create", Name: "a.txt", Outcome: types.OutcomeSuccess})
	j.Report(ctx, types.SyncRecord{Operation: "create", Name: "b.txt", Outcome: types.OutcomeSuccess})

	got, err := j.ForName(ctx, "a.txt", 10)
	if err != nil {
		t.Fatalf("ForName: %v", err)
	}
	if len(got) != 1 || got[0].Name != "a.txt" {
		t.Fatalf("ForName = %+v", got)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Report should stamp the record")
	}
}

func TestJournal_Prune(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	now := time.Now()

	_ = j.Record(ctx, types.SyncRecord{Timestamp: now.Add(-48 * time.Hour), Operation: "create", Name: "old", Outcome: types.OutcomeSuccess})
	_ = j.Record(ctx, types.SyncRecord{Timestamp: now, Operation: "create", Name: "new", Outcome: types.OutcomeSuccess})

	removed, err := j.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	got, _ := j.Recent(ctx, 10)
	if len(got) != 1 || got[0].Name != "new" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestJournal_CloseNil(t *testing.T) {
	var j *Journal
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil journal: %v", err)
	}
}
