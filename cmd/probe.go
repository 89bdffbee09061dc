package cmd

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomyangzx/ESP32-CAM/internal/logging"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var url string
	var frames int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure stream throughput",
		Long: `Connects to a running node's MJPEG endpoint, reads a fixed number of ` +
			`frames and reports the observed frame rate and payload sizes.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("probe")

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				logger.Error("Invalid stream URL", "error", err, "url", url)
				os.Exit(1)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				logger.Error("Failed to connect", "error", err, "url", url)
				os.Exit(1)
			}
			defer resp.Body.Close()

			mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
			if err != nil || mediaType != "multipart/x-mixed-replace" {
				logger.Error("Endpoint is not an MJPEG stream",
					"content_type", resp.Header.Get("Content-Type"))
				os.Exit(1)
			}

			mr := multipart.NewReader(resp.Body, params["boundary"])
			start := time.Now()
			var totalBytes int64

			for i := 0; i < frames; i++ {
				part, err := mr.NextPart()
				if err != nil {
					logger.Error("Stream ended early", "error", err, "frames_read", i)
					os.Exit(1)
				}
				n, err := io.Copy(io.Discard, part)
				if err != nil {
					logger.Error("Failed reading frame", "error", err, "frame", i)
					os.Exit(1)
				}
				totalBytes += n
			}

			elapsed := time.Since(start)
			fps := float64(frames) / elapsed.Seconds()
			fmt.Printf("frames: %d\n", frames)
			fmt.Printf("elapsed: %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("fps: %.2f\n", fps)
			fmt.Printf("avg frame size: %d bytes\n", totalBytes/int64(frames))
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8090/stream", "Stream URL to probe")
	cmd.Flags().IntVar(&frames, "frames", 100, "Number of frames to read")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall probe timeout")

	return cmd
}
