package world

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"voxelscope.ai/internal/catalogs"
	"voxelscope.ai/internal/mathx"
)

const (
	GeneratorLayers = "layers"
	GeneratorNoise  = "noise"
)

// Params configures the synthetic world. Landmark names the chunk that gets
// the tall gold column used to orient a viewer at a glance.
type Params struct {
	Seed      int64
	Height    int
	Generator string
	Landmark  ChunkKey
}

// blockIDs holds the palette ids the generators place. They are resolved
// once at construction so a misnamed block fails startup instead of
// corrupting terrain mid-run.
type blockIDs struct {
	air       uint16
	bedrock   uint16
	stone     uint16
	glowstone uint16
	gold      uint16
}

// Provider serves deterministic synthetic terrain. Chunks are generated on
// first access and cached forever; the same (seed, cx, cz) always yields a
// byte-identical voxel buffer. Not safe for concurrent use, the harness
// loop is its single caller.
type Provider struct {
	params Params
	ids    blockIDs
	cats   *catalogs.BlockCatalog

	chunks map[ChunkKey]*Chunk
	noise  *perlin.Perlin

	generated uint64
}

// BlockQuery is the answer to a single-voxel lookup. Positions outside the
// vertical world bounds answer as synthetic air.
type BlockQuery struct {
	Pos         [3]int
	Block       uint16
	Transparent bool
}

func NewProvider(p Params, cats *catalogs.BlockCatalog) (*Provider, error) {
	if p.Height <= 12 {
		return nil, fmt.Errorf("world height %d too small", p.Height)
	}
	switch p.Generator {
	case GeneratorLayers, GeneratorNoise:
	default:
		return nil, fmt.Errorf("unknown generator %q", p.Generator)
	}

	var ids blockIDs
	var err error
	resolve := func(dst *uint16, name string) {
		if err != nil {
			return
		}
		*dst, err = cats.IDOf(name)
	}
	resolve(&ids.air, "AIR")
	resolve(&ids.bedrock, "BEDROCK")
	resolve(&ids.stone, "STONE")
	resolve(&ids.glowstone, "GLOWSTONE")
	resolve(&ids.gold, "GOLD_BLOCK")
	if err != nil {
		return nil, fmt.Errorf("resolve generator blocks: %w", err)
	}

	pr := &Provider{
		params: p,
		ids:    ids,
		cats:   cats,
		chunks: map[ChunkKey]*Chunk{},
	}
	if p.Generator == GeneratorNoise {
		pr.noise = perlin.NewPerlin(2, 2, 3, p.Seed)
	}
	return pr, nil
}

func (p *Provider) Height() int { return p.params.Height }

// GeneratedCount reports how many chunks have been generated so far.
func (p *Provider) GeneratedCount() uint64 { return p.generated }

// GetChunk returns the chunk at (cx, cz), generating it on first access.
func (p *Provider) GetChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if c, ok := p.chunks[k]; ok {
		return c
	}
	c := newChunk(cx, cz, p.params.Height)
	switch p.params.Generator {
	case GeneratorNoise:
		p.genNoise(c)
	default:
		p.genLayers(c)
	}
	p.chunks[k] = c
	p.generated++
	return c
}

// GetBlock answers a world-coordinate voxel lookup, generating the owning
// chunk if needed.
func (p *Provider) GetBlock(x, y, z int) BlockQuery {
	q := BlockQuery{Pos: [3]int{x, y, z}}
	if y < 0 || y >= p.params.Height {
		q.Block = p.ids.air
		q.Transparent = true
		return q
	}
	c := p.GetChunk(mathx.FloorDiv(x, ChunkSide), mathx.FloorDiv(z, ChunkSide))
	q.Block = c.Get(mathx.Mod(x, ChunkSide), y, mathx.Mod(z, ChunkSide))
	q.Transparent = p.cats.IsTransparent(q.Block)
	return q
}

// Raycast walks from origin along dir up to maxDist and reports the first
// solid voxel hit, or nil for a miss. Voxel traversal is not implemented
// yet; every ray reports a miss.
//
// TODO: implement Amanatides-Woo DDA traversal once a consumer needs hits.
func (p *Provider) Raycast(origin, dir mgl64.Vec3, maxDist float64) *BlockQuery {
	_ = origin
	_ = dir
	_ = maxDist
	return nil
}

// genLayers builds the flat diagnostic terrain: a bedrock floor, a slab of
// stone, and a sparse glowstone grid at the slab surface so chunk seams and
// local-coordinate orientation are visible. The landmark chunk additionally
// carries a gold column rising well above the slab.
func (p *Provider) genLayers(c *Chunk) {
	for lz := 0; lz < ChunkSide; lz++ {
		for lx := 0; lx < ChunkSide; lx++ {
			c.set(lx, 0, lz, p.ids.bedrock)
			for y := 1; y <= 10; y++ {
				c.set(lx, y, lz, p.ids.stone)
			}
			if lx%4 == 0 && lz%4 == 0 {
				c.set(lx, 11, lz, p.ids.glowstone)
			}
		}
	}
	p.placeLandmark(c)
}

// genNoise builds rolling perlin terrain. It shares the bedrock floor and
// the landmark column with the layered generator so viewers keep their
// orientation aids.
func (p *Provider) genNoise(c *Chunk) {
	const scale = 1.0 / 48.0
	span := float64(p.params.Height-4) / 2
	for lz := 0; lz < ChunkSide; lz++ {
		for lx := 0; lx < ChunkSide; lx++ {
			wx := c.CX*ChunkSide + lx
			wz := c.CZ*ChunkSide + lz
			n := p.noise.Noise2D(float64(wx)*scale, float64(wz)*scale) // roughly [-1, 1]
			h := 2 + int((n+1)*span/2)
			h = mathx.ClampInt(h, 1, p.params.Height-1, 1)

			c.set(lx, 0, lz, p.ids.bedrock)
			for y := 1; y <= h; y++ {
				c.set(lx, y, lz, p.ids.stone)
			}
			// Sparse glowstone specks on the surface keep orientation
			// cues in rolling terrain.
			if h+1 < p.params.Height && mathx.Hash2(p.params.Seed, wx, wz)%251 == 0 {
				c.set(lx, h+1, lz, p.ids.glowstone)
			}
		}
	}
	p.placeLandmark(c)
}

// placeLandmark raises a gold column at local (8, 8) of the landmark chunk,
// from just above the stone slab to y=29.
func (p *Provider) placeLandmark(c *Chunk) {
	if (ChunkKey{CX: c.CX, CZ: c.CZ}) != p.params.Landmark {
		return
	}
	top := 30
	if top > c.Height {
		top = c.Height
	}
	for y := 11; y < top; y++ {
		c.set(8, y, 8, p.ids.gold)
	}
}
