package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int    `yaml:"tick_rate_hz"`
	Seed       int64  `yaml:"seed"`
	Generator  string `yaml:"generator"`
	Height     int    `yaml:"height"`
	ViewRadius int    `yaml:"view_radius"`

	LandmarkCX int `yaml:"landmark_cx"`
	LandmarkCZ int `yaml:"landmark_cz"`

	// StatusEveryTicks controls the periodic status log line; 0 disables.
	StatusEveryTicks int `yaml:"status_every_ticks"`

	Flight Flight `yaml:"flight"`

	BlocksPath   string `yaml:"blocks_path"`
	ListenAddr   string `yaml:"listen_addr"`
	FlightLogDir string `yaml:"flight_log_dir"`
	RunIndexPath string `yaml:"run_index_path"`
}

type Flight struct {
	SpeedBlocksPerSec float64    `yaml:"speed_blocks_per_sec"`
	LookSensitivity   float64    `yaml:"look_sensitivity"`
	SpawnPos          [3]float64 `yaml:"spawn_pos"`
}

// Defaults is the configuration a bare run uses when no tuning.yaml is
// given. Values are chosen so the landmark column sits inside the initial
// view window.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:  "0.1",
		TickRateHz:       20,
		Seed:             1337,
		Generator:        "layers",
		Height:           64,
		ViewRadius:       6,
		LandmarkCX:       2,
		LandmarkCZ:       2,
		StatusEveryTicks: 100,
		Flight: Flight{
			SpeedBlocksPerSec: 10,
			LookSensitivity:   0.005,
			SpawnPos:          [3]float64{8, 20, 8},
		},
		BlocksPath: "configs/blocks.json",
		ListenAddr: ":8090",
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, t.Validate()
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", t.TickRateHz)
	}
	if t.ViewRadius < 0 {
		return fmt.Errorf("view_radius must be non-negative, got %d", t.ViewRadius)
	}
	if t.StatusEveryTicks < 0 {
		return fmt.Errorf("status_every_ticks must be non-negative, got %d", t.StatusEveryTicks)
	}
	if t.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", t.Height)
	}
	if t.Flight.SpeedBlocksPerSec < 0 {
		return fmt.Errorf("flight speed must be non-negative, got %v", t.Flight.SpeedBlocksPerSec)
	}
	return nil
}
