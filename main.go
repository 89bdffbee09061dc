package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/tomyangzx/ESP32-CAM/cmd"
	"github.com/tomyangzx/ESP32-CAM/internal/camera"
	"github.com/tomyangzx/ESP32-CAM/internal/config"
	"github.com/tomyangzx/ESP32-CAM/internal/encode"
	"github.com/tomyangzx/ESP32-CAM/internal/events"
	"github.com/tomyangzx/ESP32-CAM/internal/led"
	"github.com/tomyangzx/ESP32-CAM/internal/logging"
	"github.com/tomyangzx/ESP32-CAM/internal/metrics"
	"github.com/tomyangzx/ESP32-CAM/internal/server"
	"github.com/tomyangzx/ESP32-CAM/internal/status"
	"github.com/tomyangzx/ESP32-CAM/internal/stream"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port     string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	DeviceID string `help:"Device identifier shown on the status page" default:"espcam-node" toml:"server.device_id" env:"SERVER_DEVICE_ID"`

	// Stream settings
	StreamBoundary        string `help:"Multipart boundary token" default:"frame" toml:"stream.boundary" env:"STREAM_BOUNDARY"`
	StreamFrameIntervalMs int    `help:"Minimum inter-frame delay in milliseconds (0 disables pacing)" default:"33" toml:"stream.frame_interval_ms" env:"STREAM_FRAME_INTERVAL_MS"`
	StreamReportEvery     int    `help:"Frames between throughput reports" default:"100" toml:"stream.report_every" env:"STREAM_REPORT_EVERY"`

	// Camera settings
	CameraDriver      string `help:"Capture driver (pattern, pipe)" default:"pattern" toml:"camera.driver" env:"CAMERA_DRIVER"`
	CameraPipeCommand string `help:"External MJPEG producer command for the pipe driver" toml:"camera.pipe_command" env:"CAMERA_PIPE_COMMAND"`
	CameraConfigFile  string `help:"Camera controls file (hot-reloaded)" default:"camera.toml" toml:"camera.config_file" env:"CAMERA_CONFIG_FILE"`
	CameraFBCount     int    `help:"Number of leasable frame buffers" default:"2" toml:"camera.fb_count" env:"CAMERA_FB_COUNT"`

	// Metrics settings
	MetricsEnabled bool `help:"Enable Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Features settings
	FeaturesLEDControl bool `help:"Enable LED control" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera string `help:"Camera logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingStream string `help:"Stream logging level" default:"info" toml:"logging.stream" env:"LOGGING_STREAM"`
	LoggingServer string `help:"Server logging level" default:"info" toml:"logging.server" env:"LOGGING_SERVER"`
	LoggingHTTP   string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera": opts.LoggingCamera,
				"stream": opts.LoggingStream,
				"server": opts.LoggingServer,
				"http":   opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		// Camera controls and capture driver
		cameraLogger := logging.GetLogger("camera")
		controls, err := camera.LoadControls(opts.CameraConfigFile)
		if err != nil {
			logger.Warn("Failed to load camera controls, using defaults",
				"error", err, "file", opts.CameraConfigFile)
			controls = camera.DefaultControls()
		}

		var drv camera.Driver
		switch opts.CameraDriver {
		case "pattern":
			drv = camera.NewPatternDriver()
		case "pipe":
			fields := strings.Fields(opts.CameraPipeCommand)
			if len(fields) == 0 {
				logger.Error("Pipe driver requires camera.pipe_command")
				os.Exit(1)
			}
			drv = camera.NewPipeDriver(fields[0], fields[1:], cameraLogger)
		default:
			logger.Error("Unknown capture driver", "driver", opts.CameraDriver)
			os.Exit(1)
		}

		if initErr := drv.Init(controls); initErr != nil {
			logger.Error("Failed to initialize capture driver", "error", initErr)
			os.Exit(1)
		}

		source := camera.NewSource(drv, opts.CameraFBCount, cameraLogger)
		encoder := encode.New(source, controls.JPEGQuality)

		// Hot reload of camera controls
		controlsWatcher := config.NewConfigWatcher(
			opts.CameraConfigFile,
			camera.LoadControls,
			cameraLogger,
		)
		controlsWatcher.OnReload(func(c camera.Controls) {
			if applyErr := source.Apply(c); applyErr != nil {
				cameraLogger.Warn("Failed to apply camera controls", "error", applyErr)
				return
			}
			cameraLogger.Info("Camera controls applied",
				"pixel_format", c.PixelFormat,
				"width", c.FrameWidth,
				"height", c.FrameHeight)
		})

		// Metrics
		var streamMetrics stream.Metrics
		var promHandler http.Handler
		if opts.MetricsEnabled {
			streamMetrics = metrics.Streaming{}
			promHandler = metrics.Handler()
		}

		// LED control
		var ledManager *led.Manager
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledController := led.New(logger)
			ledManager = led.NewManager(ledController, eventBus, logger)
		}

		srv := server.NewServer(&server.Options{
			Prober:  status.NewProber(opts.DeviceID),
			Source:  source,
			Encoder: encoder,
			Bus:     eventBus,
			StreamConfig: stream.Config{
				Boundary:      opts.StreamBoundary,
				FrameInterval: time.Duration(opts.StreamFrameIntervalMs) * time.Millisecond,
				ReportEvery:   opts.StreamReportEvery,
			},
			Metrics:           streamMetrics,
			PrometheusHandler: promHandler,
		})

		hooks.OnStart(func() {
			if watchErr := controlsWatcher.Start(); watchErr != nil {
				logger.Warn("Camera controls watcher not started", "error", watchErr)
			}

			if ledManager != nil {
				ledManager.Start()
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("systemd notify unavailable", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := srv.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyStopping); notifyErr != nil {
				logger.Debug("systemd notify unavailable", "error", notifyErr)
			}

			if stopErr := srv.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := controlsWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping controls watcher", "error", stopErr)
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			if closeErr := source.Close(); closeErr != nil {
				logger.Warn("Error closing capture source", "error", closeErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateSnapshotCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())

	cli.Run()
}
