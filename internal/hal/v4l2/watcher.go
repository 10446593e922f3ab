//go:build linux

package v4l2

import (
	"context"
	"time"

	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/logging"
	"github.com/smazurov/evsnode/pkg/linuxav/hotplug"
	"github.com/smazurov/evsnode/pkg/linuxav/v4l2"
)

// WatchDevices monitors kernel hotplug events for video capture devices
// and publishes discovery events on the bus. Blocks until ctx is done.
func WatchDevices(ctx context.Context, bus *events.Bus) error {
	logger := logging.GetLogger("hal")

	monitor, err := hotplug.NewMonitor()
	if err != nil {
		return err
	}
	defer monitor.Close()
	monitor.AddSubsystemFilter(hotplug.SubsystemVideo4Linux)

	ch := make(chan hotplug.Event, 16)
	go func() {
		if runErr := monitor.Run(ctx, ch); runErr != nil && ctx.Err() == nil {
			logger.Warn("Hotplug monitor stopped", "error", runErr)
		}
	}()

	logger.Info("Watching for camera hotplug events")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			var action string
			switch ev.Action {
			case hotplug.ActionAdd:
				action = "added"
			case hotplug.ActionRemove:
				action = "removed"
			default:
				continue
			}

			id := stableIDForPath(ev.DevPath)
			if id == "" {
				id = ev.DevName
			}
			logger.Info("Camera hotplug", "camera_id", id, "action", action)
			bus.Publish(events.DeviceDiscoveryEvent{
				CameraID:  id,
				Action:    action,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

// stableIDForPath maps a device node path to its stable id. Returns ""
// when the device is gone (removal events) or has no stable id.
func stableIDForPath(devPath string) string {
	if devPath == "" {
		return ""
	}
	devices, err := v4l2.FindDevices()
	if err != nil {
		return ""
	}
	for _, dev := range devices {
		if dev.DevicePath == devPath {
			return dev.DeviceID
		}
	}
	return ""
}
