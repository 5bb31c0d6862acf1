package database

import (
	"testing"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionBlob(t *testing.T) {
	db := openTestDB(t)

	blob, err := db.LoadSession()
	if err != nil || blob != nil {
		t.Fatalf("empty store: blob=%v err=%v", blob, err)
	}

	if err := db.SaveSession([]byte("sealed")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	blob, err = db.LoadSession()
	if err != nil || string(blob) != "sealed" {
		t.Fatalf("LoadSession = %q, %v", blob, err)
	}

	if err := db.DeleteSession(); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if blob, _ := db.LoadSession(); blob != nil {
		t.Errorf("session still present after delete: %q", blob)
	}
}

func TestExitJournal(t *testing.T) {
	db := openTestDB(t)

	recorded, err := db.ExitRecorded("e1")
	if err != nil || recorded {
		t.Fatalf("fresh journal: recorded=%v err=%v", recorded, err)
	}

	moisture := 12.0
	if err := db.RecordExit("e1", models.ExitPayload{ExitWeight: 950, Moisture: &moisture}); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}
	if err := db.RecordExit("e1", models.ExitPayload{ExitWeight: 1}); err != nil {
		t.Fatalf("second RecordExit failed: %v", err)
	}
	if err := db.RecordExit("e0", models.ExitPayload{ExitWeight: 700}); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}

	if recorded, _ := db.ExitRecorded("e1"); !recorded {
		t.Error("e1 should be journaled")
	}

	records, err := db.ExitRecords()
	if err != nil {
		t.Fatalf("ExitRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].EntryID != "e0" || records[1].EntryID != "e1" {
		t.Errorf("unexpected order: %s, %s", records[0].EntryID, records[1].EntryID)
	}
	if records[1].Payload.ExitWeight != 950 || records[1].Payload.Moisture == nil {
		t.Errorf("first write should win: %+v", records[1].Payload)
	}
}

func TestSessionKeyDoesNotLeakIntoJournal(t *testing.T) {
	db := openTestDB(t)
	_ = db.SaveSession([]byte("blob"))
	records, err := db.ExitRecords()
	if err != nil || len(records) != 0 {
		t.Errorf("records = %v, err = %v", records, err)
	}
}
