package journal

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	entries := []Entry{
		{Operation: "delete_sesion", EntityID: 42, Step: "delete_chats", OK: true, Count: 3},
		{Operation: "delete_sesion", EntityID: 42, Step: "disconnect", OK: false, Error: "orchestrator down"},
		{Operation: "delete_contacto", EntityID: 7, Step: "delete_deals", OK: true, Count: 2},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record(%+v): %v", e, err)
		}
	}

	rows, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Newest first.
	if rows[0].Operation != "delete_contacto" || rows[0].EntityID != 7 {
		t.Errorf("newest row = %+v", rows[0])
	}
	if rows[1].Step != "disconnect" || rows[1].OK || rows[1].Error != "orchestrator down" {
		t.Errorf("failed step row = %+v", rows[1])
	}
	if rows[2].Count != 3 {
		t.Errorf("count = %d, want 3", rows[2].Count)
	}
	if rows[0].CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}
}

func TestRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := j.Record(ctx, Entry{Operation: "delete_sesion", EntityID: int64(i), Step: "delete_chats", OK: true}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	// Out-of-range limits fall back to the default.
	rows, err = j.Recent(ctx, -1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want all 5 under the default limit", len(rows))
	}
}
