package view

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscope.ai/internal/mathx"
	"voxelscope.ai/internal/world"
)

// Sink receives chunk residency changes. A load always carries the full
// chunk; an evict only names it. Calls happen on the harness loop
// goroutine, so implementations must be quick or hand off.
type Sink interface {
	LoadChunk(c *world.Chunk)
	EvictChunk(cx, cz int)
}

// Synchronizer keeps a sink's resident chunk set equal to the square of
// chunks within Radius of the camera, in Chebyshev distance. After Init or
// any UpdatePosition the resident set is exactly the (2r+1)^2 chunks
// centered on the camera chunk, never more and never less.
type Synchronizer struct {
	provider *world.Provider
	sink     Sink
	radius   int
	offsets  []world.ChunkKey // window offsets, center-out

	cur      world.ChunkKey
	resident map[world.ChunkKey]struct{}
	inited   bool
}

func NewSynchronizer(pr *world.Provider, sink Sink, radius int) (*Synchronizer, error) {
	if radius < 0 {
		return nil, fmt.Errorf("view radius %d is negative", radius)
	}
	return &Synchronizer{
		provider: pr,
		sink:     sink,
		radius:   radius,
		offsets:  windowOffsets(radius),
		resident: map[world.ChunkKey]struct{}{},
	}, nil
}

// windowOffsets lists every offset of the (2r+1)^2 window sorted by
// Chebyshev distance, so nearby chunks reach the sink before far ones and
// the viewer fills in from under the camera outward.
func windowOffsets(radius int) []world.ChunkKey {
	out := make([]world.ChunkKey, 0, (2*radius+1)*(2*radius+1))
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, world.ChunkKey{CX: dx, CZ: dz})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := chebDist(out[i]), chebDist(out[j])
		if di != dj {
			return di < dj
		}
		if out[i].CZ != out[j].CZ {
			return out[i].CZ < out[j].CZ
		}
		return out[i].CX < out[j].CX
	})
	return out
}

func chebDist(k world.ChunkKey) int {
	x, z := k.CX, k.CZ
	if x < 0 {
		x = -x
	}
	if z < 0 {
		z = -z
	}
	if x > z {
		return x
	}
	return z
}

// ChunkCoordOf maps a continuous camera position to the chunk it stands in.
func ChunkCoordOf(pos mgl64.Vec3) world.ChunkKey {
	return world.ChunkKey{
		CX: mathx.FloorDiv(int(math.Floor(pos.X())), world.ChunkSide),
		CZ: mathx.FloorDiv(int(math.Floor(pos.Z())), world.ChunkSide),
	}
}

// Init loads the full initial window around pos. It must run before the
// first UpdatePosition; the sink sees every chunk of the window before the
// first frame is ever drawn.
func (s *Synchronizer) Init(pos mgl64.Vec3) {
	s.cur = ChunkCoordOf(pos)
	for _, off := range s.offsets {
		k := world.ChunkKey{CX: s.cur.CX + off.CX, CZ: s.cur.CZ + off.CZ}
		s.sink.LoadChunk(s.provider.GetChunk(k.CX, k.CZ))
		s.resident[k] = struct{}{}
	}
	s.inited = true
}

// UpdatePosition diffs the required window against the resident set and
// emits only the delta. A move that stays inside the current chunk is a
// no-op.
func (s *Synchronizer) UpdatePosition(pos mgl64.Vec3) {
	k := ChunkCoordOf(pos)
	if !s.inited {
		s.Init(pos)
		return
	}
	if k == s.cur {
		return
	}
	s.cur = k

	required := make(map[world.ChunkKey]struct{}, len(s.offsets))
	for _, off := range s.offsets {
		nk := world.ChunkKey{CX: k.CX + off.CX, CZ: k.CZ + off.CZ}
		required[nk] = struct{}{}
		if _, ok := s.resident[nk]; !ok {
			s.sink.LoadChunk(s.provider.GetChunk(nk.CX, nk.CZ))
			s.resident[nk] = struct{}{}
		}
	}
	for rk := range s.resident {
		if _, ok := required[rk]; !ok {
			s.sink.EvictChunk(rk.CX, rk.CZ)
			delete(s.resident, rk)
		}
	}
}

// ResidentCount reports how many chunks the sink currently holds.
func (s *Synchronizer) ResidentCount() int { return len(s.resident) }

// Resident reports whether the given chunk is currently loaded in the sink.
func (s *Synchronizer) Resident(cx, cz int) bool {
	_, ok := s.resident[world.ChunkKey{CX: cx, CZ: cz}]
	return ok
}

// Center is the chunk the camera was last observed in.
func (s *Synchronizer) Center() world.ChunkKey { return s.cur }
