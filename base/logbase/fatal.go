package logbase

import (
	"os"

	"go.uber.org/zap"
)

// Fatal logs msg at error level, attributed to the caller, and exits. Unlike
// zap's Fatal it flushes the logger and returns a plain exit status of 1.
func Fatal(log *zap.Logger, msg string, fields ...zap.Field) {
	log = log.WithOptions(zap.AddCallerSkip(1))
	log.Error(msg, fields...)
	_ = log.Sync()
	os.Exit(1)
}
