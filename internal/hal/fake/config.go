package fake

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadDeviceTable reads a fake device table from a TOML file. The watcher
// in the daemon reloads this on change and calls Enumerator.Replace.
func LoadDeviceTable(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read device table: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse device table: %w", err)
	}
	return cfg, nil
}

// DefaultDeviceTable is the table used when no devices.toml exists: two
// physical cameras and a stereo logical composite over them.
func DefaultDeviceTable() Config {
	return Config{
		Cameras: []CameraSpec{
			{ID: "camera.0", MaxBuffers: 8},
			{ID: "camera.1", MaxBuffers: 8},
			{ID: "camera.stereo", PhysicalIDs: []string{"camera.0", "camera.1"}},
		},
		DisplayWidth:  1280,
		DisplayHeight: 720,
	}
}
