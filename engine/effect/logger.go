package effect

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
)

// SetLogger installs the logger used by effects, the shader compiler and the renderer.
// Passing nil disables logging.
//
// Parameters:
//   - l: the logger to install
func SetLogger(l *slog.Logger) {
	logger.SetLogger(l)
}
