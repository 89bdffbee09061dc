package led

import (
	"log/slog"
	"sync"

	"github.com/tomyangzx/ESP32-CAM/internal/events"
)

// Manager subscribes to session events and drives the flash LED from the
// aggregate state: solid while any client streams, blink while idle.
type Manager struct {
	controller   Controller
	eventBus     *events.Bus
	unsubscribes []func()
	logger       *slog.Logger

	mu     sync.Mutex
	active int
}

// NewManager creates an LED manager that reacts to session lifecycle events.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start begins listening for session events and sets the idle pattern.
func (m *Manager) Start() {
	m.unsubscribes = append(m.unsubscribes,
		m.eventBus.Subscribe(func(e events.SessionStartedEvent) {
			m.sessionStarted(e)
		}),
		m.eventBus.Subscribe(func(e events.SessionEndedEvent) {
			m.sessionEnded(e)
		}),
	)
	m.updateLED(0)
	m.logger.Info("LED manager started")
}

// Stop unsubscribes from events and turns the LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribes {
		unsub()
	}
	m.unsubscribes = nil
	if err := m.controller.Set("flash", false, "solid"); err != nil {
		m.logger.Warn("Failed to turn flash LED off", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

// GetController returns the underlying LED controller.
func (m *Manager) GetController() Controller {
	return m.controller
}

func (m *Manager) sessionStarted(e events.SessionStartedEvent) {
	m.mu.Lock()
	m.active++
	active := m.active
	m.mu.Unlock()

	m.logger.Debug("Session started", "remote", e.RemoteAddr, "active", active)
	m.updateLED(active)
}

func (m *Manager) sessionEnded(e events.SessionEndedEvent) {
	m.mu.Lock()
	if m.active > 0 {
		m.active--
	}
	active := m.active
	m.mu.Unlock()

	m.logger.Debug("Session ended",
		"remote", e.RemoteAddr,
		"reason", e.Reason,
		"frames", e.Frames,
		"active", active)
	m.updateLED(active)
}

func (m *Manager) updateLED(active int) {
	if active > 0 {
		if err := m.controller.Set("flash", true, "solid"); err != nil {
			m.logger.Warn("Failed to set flash LED to solid", "error", err)
		}
		return
	}
	if err := m.controller.Set("flash", true, "blink"); err != nil {
		m.logger.Warn("Failed to set flash LED to blink", "error", err)
	}
}
