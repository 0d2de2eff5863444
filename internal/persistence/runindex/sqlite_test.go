package runindex

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRunIndexRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs", "index.db")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	info := RunInfo{
		RunID:         "run_test_1",
		StartedAt:     time.Now(),
		Seed:          1337,
		Generator:     "layers",
		Height:        64,
		ViewRadius:    6,
		TickRateHz:    20,
		PaletteDigest: "deadbeef",
	}
	if err := idx.RecordRun(info); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	for tick := uint64(0); tick < 10; tick++ {
		idx.WriteFrame(FrameRow{
			RunID: info.RunID, Tick: tick,
			Pos: [3]float64{float64(tick), 20, 8}, Resident: 169,
		})
	}
	idx.WriteChunkEvent(ChunkEventRow{RunID: info.RunID, Tick: 3, Kind: "load", CX: 9, CZ: 2})
	idx.WriteChunkEvent(ChunkEventRow{RunID: info.RunID, Tick: 3, Kind: "evict", CX: -4, CZ: 2})

	// Close drains the writer queue before the db closes, so counts are
	// stable afterwards. Reopen to read.
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.CountFrames(info.RunID)
	if err != nil {
		t.Fatalf("CountFrames: %v", err)
	}
	if n != 10 {
		t.Fatalf("CountFrames = %d, want 10", n)
	}
	for kind, want := range map[string]int{"load": 1, "evict": 1} {
		n, err := reopened.CountChunkEvents(info.RunID, kind)
		if err != nil {
			t.Fatalf("CountChunkEvents(%s): %v", kind, err)
		}
		if n != want {
			t.Fatalf("CountChunkEvents(%s) = %d, want %d", kind, n, want)
		}
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
