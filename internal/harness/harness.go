package harness

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscope.ai/internal/catalogs"
	"voxelscope.ai/internal/flight"
	"voxelscope.ai/internal/persistence/flightlog"
	"voxelscope.ai/internal/persistence/runindex"
	"voxelscope.ai/internal/tuning"
	"voxelscope.ai/internal/view"
	"voxelscope.ai/internal/world"
)

// Frame is the per-tick observer state handed to the render sink after
// chunk residency has been settled for the tick.
type Frame struct {
	Tick     uint64
	Pos      [3]float64
	Yaw      float64
	Pitch    float64
	ChunkX   int
	ChunkZ   int
	Resident int
}

// RenderSink is the external rendering capability. Chunk traffic arrives
// via the embedded view.Sink, then exactly one Frame per tick.
type RenderSink interface {
	view.Sink
	Frame(f Frame)
}

// NopSink discards everything. Useful for headless soak runs.
type NopSink struct{}

func (NopSink) LoadChunk(*world.Chunk) {}
func (NopSink) EvictChunk(int, int)    {}
func (NopSink) Frame(Frame)            {}

// Options carries the optional capabilities of a run. Nil fields are
// simply not exercised.
type Options struct {
	Sink     RenderSink
	Input    flight.InputSource
	Recorder *flightlog.Recorder
	Index    *runindex.SQLiteIndex
	Logger   *log.Logger
	RunID    string
}

// Harness owns the tick loop: it samples input, advances the observer
// pose, settles chunk residency, and emits a frame. All of that happens on
// one goroutine; none of the owned components are locked.
type Harness struct {
	log  *log.Logger
	tn   tuning.Tuning
	opts Options

	cats     *catalogs.BlockCatalog
	provider *world.Provider
	sync     *view.Synchronizer
	pose     flight.Pose

	counter *countingSink

	tick uint64
	stop chan struct{}
}

// countingSink forwards residency changes to the real sink while counting
// per-tick traffic and mirroring it into the run index.
type countingSink struct {
	inner view.Sink
	index *runindex.SQLiteIndex
	runID string

	tick   *uint64
	loads  int
	evicts int
}

func (c *countingSink) LoadChunk(ch *world.Chunk) {
	c.loads++
	if c.index != nil {
		c.index.WriteChunkEvent(runindex.ChunkEventRow{
			RunID: c.runID, Tick: *c.tick, Kind: "load", CX: ch.CX, CZ: ch.CZ,
		})
	}
	c.inner.LoadChunk(ch)
}

func (c *countingSink) EvictChunk(cx, cz int) {
	c.evicts++
	if c.index != nil {
		c.index.WriteChunkEvent(runindex.ChunkEventRow{
			RunID: c.runID, Tick: *c.tick, Kind: "evict", CX: cx, CZ: cz,
		})
	}
	c.inner.EvictChunk(cx, cz)
}

func New(tn tuning.Tuning, cats *catalogs.BlockCatalog, opts Options) (*Harness, error) {
	if err := tn.Validate(); err != nil {
		return nil, err
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Input == nil {
		opts.Input = flight.StaticInput{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	provider, err := world.NewProvider(world.Params{
		Seed:      tn.Seed,
		Height:    tn.Height,
		Generator: tn.Generator,
		Landmark:  world.ChunkKey{CX: tn.LandmarkCX, CZ: tn.LandmarkCZ},
	}, cats)
	if err != nil {
		return nil, fmt.Errorf("world provider: %w", err)
	}

	h := &Harness{
		log:      opts.Logger,
		tn:       tn,
		opts:     opts,
		cats:     cats,
		provider: provider,
		pose: flight.Pose{
			Pos: mgl64.Vec3{tn.Flight.SpawnPos[0], tn.Flight.SpawnPos[1], tn.Flight.SpawnPos[2]},
		},
		stop: make(chan struct{}),
	}
	h.counter = &countingSink{
		inner: opts.Sink,
		index: opts.Index,
		runID: opts.RunID,
		tick:  &h.tick,
	}
	h.sync, err = view.NewSynchronizer(provider, h.counter, tn.ViewRadius)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Harness) Provider() *world.Provider { return h.provider }
func (h *Harness) Pose() flight.Pose         { return h.pose }
func (h *Harness) CurrentTick() uint64       { return h.tick }

// Init settles the initial chunk window so the sink holds the full view
// before the first frame. Must run before Run or StepOnce.
func (h *Harness) Init() {
	h.sync.Init(h.pose.Pos)
	h.log.Printf("view ready: %d chunks resident around (%d,%d)",
		h.sync.ResidentCount(), h.sync.Center().CX, h.sync.Center().CZ)
}

// StepOnce advances exactly one tick: input, pose, residency, frame. dt is
// the simulated tick duration in seconds. Tests and replays drive this
// directly for determinism.
func (h *Harness) StepOnce(dt float64) Frame {
	intent, dx, dy := h.opts.Input.Sample()
	h.pose.ApplyLook(dx, dy, h.tn.Flight.LookSensitivity)
	h.pose.ApplyMovement(intent, h.tn.Flight.SpeedBlocksPerSec, dt)

	h.counter.loads, h.counter.evicts = 0, 0
	h.sync.UpdatePosition(h.pose.Pos)

	c := h.sync.Center()
	f := Frame{
		Tick:     h.tick,
		Pos:      [3]float64{h.pose.Pos.X(), h.pose.Pos.Y(), h.pose.Pos.Z()},
		Yaw:      h.pose.Yaw,
		Pitch:    h.pose.Pitch,
		ChunkX:   c.CX,
		ChunkZ:   c.CZ,
		Resident: h.sync.ResidentCount(),
	}
	h.opts.Sink.Frame(f)
	h.record(f)
	if n := h.tn.StatusEveryTicks; n > 0 && f.Tick%uint64(n) == 0 {
		h.log.Printf("tick %d: pos=(%.1f,%.1f,%.1f) yaw=%.2f pitch=%.2f resident=%d",
			f.Tick, f.Pos[0], f.Pos[1], f.Pos[2], f.Yaw, f.Pitch, f.Resident)
	}
	h.tick++
	return f
}

func (h *Harness) record(f Frame) {
	if h.opts.Recorder != nil {
		err := h.opts.Recorder.WriteEntry(flightlog.FlightEntry{
			Tick: f.Tick, Pos: f.Pos, Yaw: f.Yaw, Pitch: f.Pitch,
			ChunkX: f.ChunkX, ChunkZ: f.ChunkZ, Resident: f.Resident,
			Loads: h.counter.loads, Evicts: h.counter.evicts,
		})
		if err != nil {
			h.log.Printf("flight log write failed: %v", err)
		}
	}
	if h.opts.Index != nil {
		h.opts.Index.WriteFrame(runindex.FrameRow{
			RunID: h.opts.RunID, Tick: f.Tick, Pos: f.Pos,
			Yaw: f.Yaw, Pitch: f.Pitch,
			ChunkX: f.ChunkX, ChunkZ: f.ChunkZ, Resident: f.Resident,
		})
	}
}

// Run drives the loop at the configured tick rate until the context ends
// or Stop is called.
func (h *Harness) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(h.tn.TickRateHz)
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.stop:
			return nil
		case <-ticker.C:
			h.StepOnce(dt)
		}
	}
}

func (h *Harness) Stop() { close(h.stop) }
