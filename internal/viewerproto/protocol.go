package viewerproto

// Version is the viewer wire protocol version.
const Version = "0.1"

// EncodingRLE names the voxel payload encoding: base64 of (block_id,
// run_len) uvarint pairs, voxels iterated y, then z, then x (x fastest),
// 16*16*height ids total.
const EncodingRLE = "PAL16_RLE_YZX"

// Server -> Client. First message on the viewer WS connection.
type BootstrapMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []string    `json:"block_palette"`
	PaletteDigest   string      `json:"palette_digest"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [3]int `json:"chunk_size"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	Generator  string `json:"generator"`
	ViewRadius int    `json:"view_radius"`
}

// Server -> Client. Sent every tick with the observer pose.
type FrameMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Pos             [3]float64 `json:"pos"`
	Yaw             float64    `json:"yaw"`
	Pitch           float64    `json:"pitch"`
	ChunkX          int        `json:"chunk_x"`
	ChunkZ          int        `json:"chunk_z"`
	Resident        int        `json:"resident"`
}

// Server -> Client. Full voxel data for a chunk entering the view window.
type ChunkVoxelsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
	Encoding        string `json:"encoding"`
	Data            string `json:"data"`
}

// Server -> Client. Evict a chunk that left the view window.
type ChunkEvictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
}

// Client -> Server. Held keys and accumulated mouse deltas since the last
// input message. The server folds these into the next tick.
type InputMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Keys            []string `json:"keys,omitempty"`
	LookDX          float64  `json:"look_dx,omitempty"`
	LookDY          float64  `json:"look_dy,omitempty"`
}

// Server -> Client. Terminal protocol error before the connection closes.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

const (
	TypeBootstrap   = "BOOTSTRAP"
	TypeFrame       = "FRAME"
	TypeChunkVoxels = "CHUNK_VOXELS"
	TypeChunkEvict  = "CHUNK_EVICT"
	TypeInput       = "INPUT"
	TypeError       = "ERROR"
)
