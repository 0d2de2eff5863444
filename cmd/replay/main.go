package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/zstd"

	"voxelscope.ai/internal/catalogs"
	"voxelscope.ai/internal/persistence/flightlog"
	"voxelscope.ai/internal/tuning"
	"voxelscope.ai/internal/view"
	"voxelscope.ai/internal/world"
)

// Replays a recorded flight through a fresh provider and synchronizer and
// verifies the recorded chunk coordinates and resident counts still hold.
// A mismatch means the terrain or view logic diverged since the run.
func main() {
	var (
		flightDir  = flag.String("flight", "", "dir containing flight-*.jsonl.zst")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *flightDir == "" {
		fmt.Fprintln(os.Stderr, "missing -flight")
		os.Exit(2)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	bp := tune.BlocksPath
	if bp == "" {
		bp = filepath.Join(*configDir, "blocks.json")
	}
	cats, err := catalogs.Load(bp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load block catalog:", err)
		os.Exit(1)
	}

	provider, err := world.NewProvider(world.Params{
		Seed:      tune.Seed,
		Height:    tune.Height,
		Generator: tune.Generator,
		Landmark:  world.ChunkKey{CX: tune.LandmarkCX, CZ: tune.LandmarkCZ},
	}, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world provider:", err)
		os.Exit(1)
	}
	vsync, err := view.NewSynchronizer(provider, nopSink{}, tune.ViewRadius)
	if err != nil {
		fmt.Fprintln(os.Stderr, "synchronizer:", err)
		os.Exit(1)
	}

	files, err := listFlightFiles(*flightDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list flight logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no flight logs found in", *flightDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(vsync, path, *fromTick, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: checked=%d ticks, %d chunks generated\n", checked, provider.GeneratedCount())
}

type nopSink struct{}

func (nopSink) LoadChunk(*world.Chunk) {}
func (nopSink) EvictChunk(int, int)    {}

func listFlightFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "flight-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(s *view.Synchronizer, path string, fromTick, toTick uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry flightlog.FlightEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if toTick != 0 && entry.Tick > toTick {
			return nil
		}

		s.UpdatePosition(mgl64.Vec3{entry.Pos[0], entry.Pos[1], entry.Pos[2]})

		if entry.Tick < fromTick {
			continue
		}
		*checked++
		c := s.Center()
		if c.CX != entry.ChunkX || c.CZ != entry.ChunkZ {
			return fmt.Errorf("chunk mismatch at tick %d: got=(%d,%d) want=(%d,%d)",
				entry.Tick, c.CX, c.CZ, entry.ChunkX, entry.ChunkZ)
		}
		if got := s.ResidentCount(); got != entry.Resident {
			return fmt.Errorf("resident mismatch at tick %d: got=%d want=%d",
				entry.Tick, got, entry.Resident)
		}
	}
	return sc.Err()
}
