package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-123"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Round: 1, Score: 0.21, BestRestart: 0, NewCandidates: 300, Timestamp: time.Now()},
		{Round: 2, Score: 0.24, BestRestart: 3, NewCandidates: 120, Timestamp: time.Now(), Lambda: []float64{1, -0.5}},
		{Round: 3, Score: 0.25, BestRestart: 1, NewCandidates: 14, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "runs", runID, "trace.jsonl")
	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", tracePath)
	}

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	readEntries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(readEntries) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(readEntries))
	}
	for i, entry := range readEntries {
		if entry.Round != entries[i].Round {
			t.Errorf("Entry %d: expected round %d, got %d", i, entries[i].Round, entry.Round)
		}
		if entry.Score != entries[i].Score {
			t.Errorf("Entry %d: expected score %f, got %f", i, entries[i].Score, entry.Score)
		}
		if entry.BestRestart != entries[i].BestRestart {
			t.Errorf("Entry %d: expected best restart %d, got %d", i, entries[i].BestRestart, entry.BestRestart)
		}
		if len(entry.Lambda) != len(entries[i].Lambda) {
			t.Errorf("Entry %d: expected %d lambda entries, got %d", i, len(entries[i].Lambda), len(entry.Lambda))
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-append"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if err := writer.Write(TraceEntry{Round: 1, Score: 0.2, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	// A resumed process appends the next rounds
	writer, err = NewTraceWriter(tmpDir, runID, true)
	if err != nil {
		t.Fatalf("Failed to create trace writer in append mode: %v", err)
	}
	if err := writer.Write(TraceEntry{Round: 2, Score: 0.22, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(entries))
	}
	if entries[1].Round != 2 {
		t.Errorf("Expected appended round 2, got %d", entries[1].Round)
	}
}

func TestTraceReader_Missing(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_EOF(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "test-run-eof"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF on empty trace, got %v", err)
	}
}
