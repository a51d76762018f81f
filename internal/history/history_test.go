package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestHistoryAppendAndRecent(t *testing.T) {
	st := openTestStore(t)

	base := time.Date(2026, time.September, 1, 7, 30, 0, 0, time.UTC)
	records := []Record{
		{Sequence: "Wake", ScheduledTime: "07:30", FiredAt: base, OneTime: true, ActionsTotal: 3, ActionsOK: 3, Outcome: "ok"},
		{Sequence: "Workout", ScheduledTime: "06:00", FiredAt: base.Add(time.Hour), ActionsTotal: 2, ActionsOK: 1, Outcome: "partial"},
		{Sequence: "Nap", FiredAt: base.Add(2 * time.Hour), Outcome: "sequence-not-found"},
	}
	for _, r := range records {
		if err := st.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := st.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent = %d records", len(got))
	}
	// Newest first.
	if got[0].Sequence != "Nap" || got[2].Sequence != "Wake" {
		t.Errorf("order = %q, %q, %q", got[0].Sequence, got[1].Sequence, got[2].Sequence)
	}
	wake := got[2]
	if !wake.OneTime || wake.ActionsTotal != 3 || wake.ActionsOK != 3 || wake.Outcome != "ok" {
		t.Errorf("record = %+v", wake)
	}
	if !wake.FiredAt.Equal(base) {
		t.Errorf("fired at = %v, want %v", wake.FiredAt, base)
	}
	if wake.ScheduledTime != "07:30" {
		t.Errorf("scheduled time = %q", wake.ScheduledTime)
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	st := openTestStore(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := st.Append(Record{Sequence: "Wake", FiredAt: base.Add(time.Duration(i) * time.Minute), Outcome: "ok"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := st.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) = %d records", len(got))
	}
}

func TestHistoryEmpty(t *testing.T) {
	st := openTestStore(t)
	got, err := st.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent on empty store = %v", got)
	}
}

func TestHistoryReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Append(Record{Sequence: "Wake", FiredAt: time.Now(), Outcome: "ok"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	got, err := st2.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Sequence != "Wake" {
		t.Errorf("persisted records = %+v", got)
	}
}
