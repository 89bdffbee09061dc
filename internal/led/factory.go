package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New creates an LED controller based on board detection. It falls back to
// a no-op controller when no known LED layout is found.
func New(logger *slog.Logger) Controller {
	boardModel := detectBoard()
	logger.Info("Detecting board for LED control", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "Raspberry Pi"):
		logger.Info("Detected Raspberry Pi, using sysfs LED controller")
		return newSysfs(map[string]string{
			"flash": "ACT",
		})

	case strings.Contains(boardModel, "Orange Pi"):
		logger.Info("Detected Orange Pi, using sysfs LED controller")
		return newSysfs(map[string]string{
			"flash": "blue_led",
		})

	case strings.Contains(boardModel, "NanoPC-T6"):
		logger.Info("Detected NanoPC-T6, using sysfs LED controller")
		return newSysfs(map[string]string{
			"flash": "usr_led",
		})

	default:
		logger.Info("No LED support detected, using no-op controller", "board_model", boardModel)
		return newNoop(logger)
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// Device tree model contains null bytes, trim them.
	return strings.TrimRight(string(data), "\x00")
}
