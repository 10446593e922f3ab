package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/hal/fake"
	halv4l2 "github.com/smazurov/evsnode/internal/hal/v4l2"
	"github.com/smazurov/evsnode/internal/logging"
	"github.com/spf13/cobra"
)

// NewHALEnumerator builds the driver-side enumerator for the selected
// backend. The fake backend falls back to the built-in device table when
// the devices file does not exist.
func NewHALEnumerator(driver, devicesFile string) (hal.Enumerator, error) {
	switch driver {
	case "fake":
		cfg, err := fake.LoadDeviceTable(devicesFile)
		if err != nil {
			cfg = fake.DefaultDeviceTable()
		}
		return fake.New(cfg), nil
	case "v4l2":
		return halv4l2.New(), nil
	default:
		return nil, fmt.Errorf("unknown HAL driver %q (want fake or v4l2)", driver)
	}
}

// CreateListCmd creates the list command.
func CreateListCmd() *cobra.Command {
	var driver string
	var devicesFile string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cameras reported by the HAL driver",
		Long: `Enumerates camera devices from the selected HAL backend and prints them, ` +
			`including logical multi-cameras and their constituent devices.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			hw, err := NewHALEnumerator(driver, devicesFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}

			cameras, err := hw.ListCameras()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error listing cameras:", err)
				os.Exit(1)
			}

			if len(cameras) == 0 {
				fmt.Println("No cameras found")
				return
			}

			for _, cam := range cameras {
				if cam.IsLogical() {
					fmt.Printf("%s\tlogical over [%s]\n", cam.ID, strings.Join(cam.Metadata.PhysicalIDs, ", "))
					continue
				}
				fmt.Printf("%s\tphysical\n", cam.ID)
			}
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "fake", "HAL backend (fake or v4l2)")
	cmd.Flags().StringVar(&devicesFile, "devices", "devices.toml", "Device table for the fake backend")

	return cmd
}
