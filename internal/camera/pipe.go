package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

const (
	pipeReadChunk         = 4096
	pipeMaxFrame          = 10 * 1024 * 1024
	defaultCaptureTimeout = 5 * time.Second
)

// JPEG stream markers.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// PipeDriver captures frames by spawning an external MJPEG producer
// (libcamera-vid, ffmpeg, ...) and extracting JPEG images from its stdout.
// Sensor tuning lives in the external command line, so Apply is a no-op.
type PipeDriver struct {
	command string
	args    []string
	timeout time.Duration
	logger  *slog.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames chan []byte
	done   chan struct{}
}

// NewPipeDriver creates a driver around the given capture command.
func NewPipeDriver(command string, args []string, logger *slog.Logger) *PipeDriver {
	return &PipeDriver{
		command: command,
		args:    args,
		timeout: defaultCaptureTimeout,
		logger:  logger,
		frames:  make(chan []byte, 1),
		done:    make(chan struct{}),
	}
}

// Init implements Driver: starts the capture process and the frame pump.
func (d *PipeDriver) Init(_ Controls) error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.cmd = exec.CommandContext(ctx, d.command, d.args...)
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}

	if err := d.cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start capture process: %w", err)
	}

	d.logger.Info("Capture process started", "command", d.command, "pid", d.cmd.Process.Pid)

	go func() {
		defer close(d.done)
		d.pump(stdout)
		_ = d.cmd.Wait()
	}()

	return nil
}

// Capture implements Driver: waits for the next pumped frame, bounded by the
// driver timeout. A timeout is reported as an error, which the caller treats
// as a capture failure.
func (d *PipeDriver) Capture(ctx context.Context) (*Frame, error) {
	select {
	case data, ok := <-d.frames:
		if !ok {
			return nil, fmt.Errorf("capture process ended")
		}
		return &Frame{Format: FormatJPEG, Data: data, owner: OwnerCaller}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d.timeout):
		return nil, fmt.Errorf("no frame within %s", d.timeout)
	}
}

// Apply implements Driver. The external process owns sensor settings.
func (d *PipeDriver) Apply(_ Controls) error {
	return nil
}

// Close implements Driver: stops the capture process.
func (d *PipeDriver) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		d.logger.Warn("Capture process did not exit in time")
	}
	return nil
}

// pump reads the process stdout and extracts complete JPEG images by
// scanning for SOI/EOI markers. Only the latest frame is kept; a stream
// session that falls behind gets the freshest picture, not a backlog.
func (d *PipeDriver) pump(r io.Reader) {
	buf := make([]byte, pipeReadChunk)
	var frame []byte

	for {
		n, err := r.Read(buf)
		if err != nil {
			close(d.frames)
			return
		}
		if n == 0 {
			continue
		}

		chunk := buf[:n]
		if len(frame) == 0 {
			start := bytes.Index(chunk, jpegSOI)
			if start == -1 {
				continue
			}
			chunk = chunk[start:]
		}
		frame = append(frame, chunk...)

		if end := bytes.LastIndex(frame, jpegEOI); end != -1 {
			complete := make([]byte, end+2)
			copy(complete, frame[:end+2])
			d.publish(complete)

			rest := frame[end+2:]
			if next := bytes.Index(rest, jpegSOI); next != -1 {
				frame = append(frame[:0], rest[next:]...)
			} else {
				frame = frame[:0]
			}
		}

		if len(frame) > pipeMaxFrame {
			d.logger.Warn("Frame buffer overflow, resetting")
			frame = frame[:0]
		}
	}
}

// publish replaces any unconsumed frame with the latest one.
func (d *PipeDriver) publish(frame []byte) {
	for {
		select {
		case d.frames <- frame:
			return
		default:
			select {
			case <-d.frames:
			default:
			}
		}
	}
}
