package logging

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process logger. The development-friendly example logger is
// the default; APP_ENV=production switches to the JSON production logger.
func New() *zap.Logger {
	if os.Getenv("APP_ENV") == "production" {
		if logger, err := zap.NewProduction(); err == nil {
			return logger
		}
	}
	return zap.NewExample()
}
