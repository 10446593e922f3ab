package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/evsnode/cmd"
	"github.com/smazurov/evsnode/internal/api"
	"github.com/smazurov/evsnode/internal/config"
	"github.com/smazurov/evsnode/internal/events"
	"github.com/smazurov/evsnode/internal/evs"
	"github.com/smazurov/evsnode/internal/hal"
	"github.com/smazurov/evsnode/internal/hal/fake"
	halv4l2 "github.com/smazurov/evsnode/internal/hal/v4l2"
	"github.com/smazurov/evsnode/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// HAL settings
	HALDriver   string `help:"Camera HAL backend (fake or v4l2)" default:"fake" toml:"hal.driver" env:"HAL_DRIVER"`
	DevicesFile string `help:"Device table for the fake backend" default:"devices.toml" toml:"hal.devices_file" env:"HAL_DEVICES_FILE"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingEVS    string `help:"Camera manager logging level" default:"info" toml:"logging.evs" env:"LOGGING_EVS"`
	LoggingHAL    string `help:"HAL driver logging level" default:"info" toml:"logging.hal" env:"LOGGING_HAL"`
	LoggingEvents string `help:"Event bus logging level" default:"info" toml:"logging.events" env:"LOGGING_EVENTS"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"evs":    opts.LoggingEVS,
				"hal":    opts.LoggingHAL,
				"events": opts.LoggingEvents,
				"api":    opts.LoggingAPI,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Publish log entries to SSE clients
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Select HAL backend
		var hw hal.Enumerator
		var deviceWatcher *config.Watcher[fake.Config]
		hotplugCtx, cancelHotplug := context.WithCancel(context.Background())

		switch opts.HALDriver {
		case "v4l2":
			hw = halv4l2.New()
		default:
			tableCfg, tableErr := fake.LoadDeviceTable(opts.DevicesFile)
			if tableErr != nil {
				logger.Info("Using built-in device table", "reason", tableErr)
				tableCfg = fake.DefaultDeviceTable()
			}
			fakeHW := fake.New(tableCfg)
			hw = fakeHW

			// Reload the device table when the file changes
			deviceWatcher = config.NewConfigWatcher(
				opts.DevicesFile,
				fake.LoadDeviceTable,
				logging.GetLogger("hal"),
			)
			deviceWatcher.OnReload(func(cfg fake.Config) {
				logger.Info("Device table changed, replacing fake devices")
				fakeHW.Replace(cfg)
			})
		}

		// Build the camera manager on top of the driver
		enumerator := evs.NewEnumerator(hw, hal.AllowAll{}, eventBus)

		apiOpts := &api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Enumerator:        enumerator,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		}

		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			// Start the device table watcher for the fake backend
			if deviceWatcher != nil {
				if watchErr := deviceWatcher.Start(); watchErr != nil {
					logger.Warn("Failed to watch device table", "error", watchErr)
				}
			}

			// Start hotplug monitoring for the v4l2 backend
			if opts.HALDriver == "v4l2" {
				go func() {
					if watchErr := halv4l2.WatchDevices(hotplugCtx, eventBus); watchErr != nil {
						logger.Warn("Device hotplug monitoring unavailable", "error", watchErr)
					}
				}()
			}

			logger.Info("Starting HTTP server", "port", opts.Port, "driver", opts.HALDriver)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			cancelHotplug()
			if deviceWatcher != nil {
				if stopErr := deviceWatcher.Stop(); stopErr != nil {
					logger.Error("Error stopping device table watcher", "error", stopErr)
				}
			}
		})
	})

	// Add camera listing command
	cli.Root().AddCommand(cmd.CreateListCmd())

	// Add diagnostics dump command
	cli.Root().AddCommand(cmd.CreateDumpCmd())

	// Run the CLI
	cli.Run()
}
