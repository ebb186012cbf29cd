package httpsys

import (
	"log/slog"

	"github.com/marmos91/httpsys/internal/logger"
)

// componentLogger returns the process logger tagged with a component name.
func componentLogger(name string) *slog.Logger {
	return logger.With(logger.KeyComponent, name)
}

func orDefault(log *slog.Logger, component string) *slog.Logger {
	if log != nil {
		return log
	}
	return componentLogger(component)
}
