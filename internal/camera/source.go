package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrPoolExhausted is returned when every frame buffer slot is
	// leased. Reaching this during a single-consumer stream means a
	// release was skipped somewhere.
	ErrPoolExhausted = errors.New("frame buffer pool exhausted")

	// ErrEmptyFrame is returned when the driver produces a nil or
	// zero-length frame; treated identically to a capture failure.
	ErrEmptyFrame = errors.New("camera produced an empty frame")
)

// Driver is the hardware-facing capture interface. Implementations produce
// frame payloads; lease accounting is the Source's job.
type Driver interface {
	// Init prepares the sensor with the given controls.
	Init(Controls) error
	// Capture produces one frame. It must not retry internally and must
	// honor ctx cancellation if it blocks.
	Capture(ctx context.Context) (*Frame, error)
	// Apply updates tuning controls on a running driver.
	Apply(Controls) error
	// Close releases driver resources.
	Close() error
}

// Source wraps a Driver with a fixed-size pool of leasable buffer slots.
// One lock guards lease/release bookkeeping only; it is never held across a
// capture or a network write.
type Source struct {
	drv    Driver
	logger *slog.Logger

	mu          sync.Mutex
	slots       []bool
	outstanding map[*Frame]int
}

// NewSource creates a Source over drv with fbCount leasable slots.
func NewSource(drv Driver, fbCount int, logger *slog.Logger) *Source {
	if fbCount < 1 {
		fbCount = 1
	}
	return &Source{
		drv:         drv,
		logger:      logger,
		slots:       make([]bool, fbCount),
		outstanding: make(map[*Frame]int),
	}
}

// Acquire leases a buffer slot and captures one frame into it. The returned
// frame must be passed to Release exactly once.
func (s *Source) Acquire(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	slot := -1
	for i, inUse := range s.slots {
		if !inUse {
			slot = i
			break
		}
	}
	if slot == -1 {
		s.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	s.slots[slot] = true
	s.mu.Unlock()

	frame, err := s.drv.Capture(ctx)
	if err != nil || frame == nil || len(frame.Data) == 0 {
		s.mu.Lock()
		s.slots[slot] = false
		s.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("capture: %w", err)
		}
		return nil, ErrEmptyFrame
	}

	frame.owner = OwnerPool
	frame.slot = slot

	s.mu.Lock()
	s.outstanding[frame] = slot
	s.mu.Unlock()

	return frame, nil
}

// Release returns a leased frame's slot to the pool. Caller-owned frames
// are accepted as a no-op so callers can release unconditionally. A double
// release is logged and ignored rather than corrupting slot state.
func (s *Source) Release(f *Frame) {
	if f == nil || f.owner == OwnerCaller {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.outstanding[f]
	if !ok {
		s.logger.Warn("Double release of camera frame", "slot", f.slot)
		return
	}
	delete(s.outstanding, f)
	s.slots[slot] = false
}

// Outstanding returns the number of currently leased frames.
func (s *Source) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding)
}

// Apply forwards tuning controls to the driver.
func (s *Source) Apply(c Controls) error {
	return s.drv.Apply(c)
}

// Close shuts down the underlying driver.
func (s *Source) Close() error {
	return s.drv.Close()
}
