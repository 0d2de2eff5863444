package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBlocks(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "blocks.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write blocks.json: %v", err)
	}
	return p
}

func TestLoadPinsAirToZero(t *testing.T) {
	p := writeBlocks(t, `[
	  {"id":"STONE","solid":true},
	  {"id":"AIR","transparent":true},
	  {"id":"BEDROCK","solid":true}
	]`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Palette[0] != "AIR" {
		t.Fatalf("palette[0] = %q, want AIR", c.Palette[0])
	}
	id, err := c.IDOf("AIR")
	if err != nil || id != 0 {
		t.Fatalf("IDOf(AIR) = %d, %v", id, err)
	}
	if !c.IsTransparent(0) {
		t.Fatalf("AIR should be transparent")
	}
	if c.PaletteDigest == "" {
		t.Fatalf("missing palette digest")
	}
}

func TestIDOfUnknownIsError(t *testing.T) {
	p := writeBlocks(t, `[{"id":"AIR","transparent":true}]`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := c.IDOf("NETHERITE"); err == nil {
		t.Fatalf("expected error for unknown block name")
	}
}

func TestLoadRejectsMissingAir(t *testing.T) {
	p := writeBlocks(t, `[{"id":"STONE","solid":true}]`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for missing AIR")
	}
}
