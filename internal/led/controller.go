// Package led drives the camera node's indicator LED: solid while at least
// one client is streaming, heartbeat blink while idle.
package led

// Controller abstracts LED hardware control across different boards.
// Implementations handle board-specific LED naming and capabilities.
type Controller interface {
	// Set controls an LED's state and optional pattern.
	// ledType is a board-specific identifier (e.g. "flash", "act");
	// pattern is "solid", "blink" or a raw sysfs trigger name, empty
	// means no pattern change.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types supported by this controller.
	Available() []string

	// Patterns returns the patterns supported by this controller.
	Patterns() []string
}
