package viewerproto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelscope.ai/internal/viewerproto"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile("bootstrap.schema.json"), `{
	  "type":"BOOTSTRAP",
	  "protocol_version":"0.1",
	  "run_id":"run_20260825_120000",
	  "world_params":{
	    "tick_rate_hz":20,
	    "chunk_size":[16,64,16],
	    "height":64,
	    "seed":1337,
	    "generator":"layers",
	    "view_radius":6
	  },
	  "block_palette":["AIR","BEDROCK","GLOWSTONE","GOLD_BLOCK","STONE"],
	  "palette_digest":"deadbeef"
	}`)

	validate(compile("frame.schema.json"), `{
	  "type":"FRAME",
	  "protocol_version":"0.1",
	  "tick":42,
	  "pos":[8.5,20.0,-3.25],
	  "yaw":1.57,
	  "pitch":-0.3,
	  "chunk_x":0,
	  "chunk_z":-1,
	  "resident":169
	}`)

	validate(compile("chunk_voxels.schema.json"), `{
	  "type":"CHUNK_VOXELS",
	  "protocol_version":"0.1",
	  "cx":-3,
	  "cz":7,
	  "encoding":"PAL16_RLE_YZX",
	  "data":"AQID"
	}`)

	validate(compile("chunk_evict.schema.json"), `{
	  "type":"CHUNK_EVICT",
	  "protocol_version":"0.1",
	  "cx":-3,
	  "cz":7
	}`)

	validate(compile("input.schema.json"), `{
	  "type":"INPUT",
	  "protocol_version":"0.1",
	  "keys":["FORWARD","UP"],
	  "look_dx":12.0,
	  "look_dy":-4.5
	}`)

	validate(compile("error.schema.json"), `{
	  "type":"ERROR",
	  "protocol_version":"0.1",
	  "code":"E_PROTO_BAD_REQUEST",
	  "message":"first message must be INPUT or empty"
	}`)
}

func TestKnownCodes(t *testing.T) {
	for _, code := range []string{
		viewerproto.ErrProtoBadRequest,
		viewerproto.ErrProtoVersion,
		viewerproto.ErrViewerBusy,
		viewerproto.ErrSlowViewer,
		viewerproto.ErrBadRequest,
		viewerproto.ErrInternal,
		"",
	} {
		if !viewerproto.IsKnownCode(code) {
			t.Fatalf("IsKnownCode(%q) = false", code)
		}
	}
	if viewerproto.IsKnownCode("E_MADE_UP") {
		t.Fatalf("unknown code accepted")
	}
}
