// Package cmd holds the auxiliary CLI commands added to the humacli root.
package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomyangzx/ESP32-CAM/internal/camera"
	"github.com/tomyangzx/ESP32-CAM/internal/encode"
	"github.com/tomyangzx/ESP32-CAM/internal/logging"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var output string
	var driverName string
	var pipeCommand string
	var controlsFile string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a single JPEG frame",
		Long: `Initializes the capture driver, grabs one frame, converts it to JPEG ` +
			`if needed and writes it to a file. Useful for checking framing and ` +
			`exposure without opening a stream.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("snapshot")

			controls, err := camera.LoadControls(controlsFile)
			if err != nil {
				logger.Error("Failed to load camera controls", "error", err, "file", controlsFile)
				os.Exit(1)
			}

			var drv camera.Driver
			switch driverName {
			case "pattern":
				drv = camera.NewPatternDriver()
			case "pipe":
				fields := strings.Fields(pipeCommand)
				if len(fields) == 0 {
					logger.Error("Pipe driver requires --pipe-command")
					os.Exit(1)
				}
				drv = camera.NewPipeDriver(fields[0], fields[1:], logger)
			default:
				logger.Error("Unknown capture driver", "driver", driverName)
				os.Exit(1)
			}

			if err := drv.Init(controls); err != nil {
				logger.Error("Failed to initialize capture driver", "error", err)
				os.Exit(1)
			}
			defer drv.Close()

			src := camera.NewSource(drv, 1, logger)
			enc := encode.New(src, controls.JPEGQuality)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			frame, err := src.Acquire(ctx)
			if err != nil {
				logger.Error("Capture failed", "error", err)
				os.Exit(1)
			}

			frame, err = enc.EnsureJPEG(frame)
			if err != nil {
				logger.Error("JPEG conversion failed", "error", err)
				os.Exit(1)
			}

			bytes := frame.Len()
			writeErr := os.WriteFile(output, frame.Data, 0o644)
			src.Release(frame)
			if writeErr != nil {
				logger.Error("Failed to write snapshot", "error", writeErr, "file", output)
				os.Exit(1)
			}

			logger.Info("Snapshot written",
				"file", output,
				"bytes", bytes,
				"width", controls.FrameWidth,
				"height", controls.FrameHeight)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "snapshot.jpg", "Output file path")
	cmd.Flags().StringVar(&driverName, "driver", "pattern", "Capture driver (pattern, pipe)")
	cmd.Flags().StringVar(&pipeCommand, "pipe-command", "", "External MJPEG producer command for the pipe driver")
	cmd.Flags().StringVar(&controlsFile, "camera-config", "camera.toml", "Camera controls file")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")

	return cmd
}
