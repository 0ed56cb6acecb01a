package logger

import (
	"go.uber.org/zap"
)

// NewLogger builds the production logger used by every process entry point.
// Construct once in main and inject; packages never reach for a global.
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// NewNop returns a no-op logger for tests.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
