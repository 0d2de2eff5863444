package flightlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestRecorderOpensLazily(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	if _, err := os.Stat(filepath.Join(dir, "flight")); !os.IsNotExist(err) {
		t.Fatalf("flight dir created before first entry (err=%v)", err)
	}
	if err := r.WriteEntry(FlightEntry{Tick: 0}); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "flight", "flight-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one flight file, got %v (%v)", files, err)
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)
	entries := []FlightEntry{
		{Tick: 0, Pos: [3]float64{8, 20, 8}, Resident: 169},
		{Tick: 1, Pos: [3]float64{8.5, 20, 8}, Yaw: 0.1, Loads: 5, Evicts: 5},
	}
	for _, e := range entries {
		if err := r.WriteEntry(e); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "flight", "flight-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one flight file, got %v (%v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var got []FlightEntry
	sc := bufio.NewScanner(dec.IOReadCloser())
	for sc.Scan() {
		var e FlightEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	if got[1] != entries[1] {
		t.Fatalf("entry mismatch: got %+v want %+v", got[1], entries[1])
	}
}
