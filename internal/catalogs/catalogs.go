package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// BlockCatalog maps block names to palette ids. AIR is always palette id 0
// so that a zero-valued voxel buffer reads as empty space.
type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
}

type BlockDef struct {
	ID          string `json:"id"`
	Solid       bool   `json:"solid"`
	Transparent bool   `json:"transparent"`
}

func Load(path string) (*BlockCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}

	c := &BlockCatalog{Defs: map[string]BlockDef{}}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("blocks.json: empty id")
		}
		c.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(c.Defs))
	for id := range c.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if _, ok := c.Defs["AIR"]; !ok {
		return nil, fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	c.Palette = ids
	c.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		c.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	sum := sha256.Sum256(palJSON)
	c.PaletteDigest = hex.EncodeToString(sum[:])
	return c, nil
}

// IDOf resolves a block name to its palette id. Unknown names are an error;
// callers that need a set of ids should resolve them all up front and fail
// fast rather than defaulting silently.
func (c *BlockCatalog) IDOf(name string) (uint16, error) {
	v, ok := c.Index[name]
	if !ok {
		return 0, fmt.Errorf("unknown block name: %s", name)
	}
	return v, nil
}

// IsTransparent reports whether the given palette id renders as see-through.
// Ids outside the palette are treated as transparent.
func (c *BlockCatalog) IsTransparent(id uint16) bool {
	if int(id) >= len(c.Palette) {
		return true
	}
	d, ok := c.Defs[c.Palette[id]]
	if !ok {
		return true
	}
	return d.Transparent
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
