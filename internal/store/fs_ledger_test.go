package store

import (
	"path/filepath"
	"testing"
)

func TestFSLedger_PutGetSync(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stats")

	ledger, err := NewFSLedger(dir, 2)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}

	if _, ok, err := ledger.Get(0, "the cat"); err != nil || ok {
		t.Fatalf("Expected miss on empty ledger, got ok=%v err=%v", ok, err)
	}

	if err := ledger.Put(0, "the cat", []int{2, 3, 1, 2}); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if err := ledger.Put(1, "a dog", []int{0, 3, 0, 2}); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}

	stats, ok, err := ledger.Get(0, "the cat")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if len(stats) != 4 || stats[0] != 2 {
		t.Errorf("Unexpected stats: %v", stats)
	}

	if err := ledger.Sync(); err != nil {
		t.Fatalf("Failed to sync: %v", err)
	}

	// A fresh ledger over the same directory sees the synced entries
	reopened, err := NewFSLedger(dir, 2)
	if err != nil {
		t.Fatalf("Failed to reopen ledger: %v", err)
	}
	stats, ok, err = reopened.Get(1, "a dog")
	if err != nil || !ok {
		t.Fatalf("Expected hit after reopen, got ok=%v err=%v", ok, err)
	}
	if stats[1] != 3 {
		t.Errorf("Unexpected stats after reopen: %v", stats)
	}

	if _, ok, _ := reopened.Get(1, "never seen"); ok {
		t.Error("Expected miss for unknown candidate")
	}
}

func TestFSLedger_UnsyncedEntriesStayInMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stats")

	ledger, err := NewFSLedger(dir, 1)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	if err := ledger.Put(0, "x", []int{1}); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}

	reopened, err := NewFSLedger(dir, 1)
	if err != nil {
		t.Fatalf("Failed to reopen ledger: %v", err)
	}
	if _, ok, _ := reopened.Get(0, "x"); ok {
		t.Error("Unsynced entry must not be visible to a fresh ledger")
	}
}
