package flightlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FlightEntry is one tick of the observer's trajectory plus the chunk
// traffic that tick caused.
type FlightEntry struct {
	Tick     uint64     `json:"tick"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	ChunkX   int        `json:"chunk_x"`
	ChunkZ   int        `json:"chunk_z"`
	Resident int        `json:"resident"`
	Loads    int        `json:"loads,omitempty"`
	Evicts   int        `json:"evicts,omitempty"`
}

// Recorder appends one zstd-compressed JSON line per tick to a single file
// per run. A flight is short-lived and replayed as a unit, so there is no
// rotation; the file opens lazily on the first entry. Safe for concurrent
// use.
type Recorder struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewRecorder(runDir string) *Recorder {
	name := fmt.Sprintf("flight-%s.jsonl.zst", time.Now().UTC().Format("20060102-150405"))
	return &Recorder{path: filepath.Join(runDir, "flight", name)}
}

func (r *Recorder) WriteEntry(e FlightEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		if err := r.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Recorder) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.enc = enc
	r.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err1 error
	if r.w != nil {
		_ = r.w.Flush()
	}
	if r.enc != nil {
		err1 = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.w = nil
	return err1
}
