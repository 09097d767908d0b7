package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global     *zap.Logger
	globalOnce sync.Once
)

// Init builds the global zap logger. Debug enables development encoding
// with debug-level output; production config otherwise.
func Init(debug bool) (*zap.Logger, error) {
	var err error
	globalOnce.Do(func() {
		var cfg zap.Config
		if debug {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
		}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "time"
		global, err = cfg.Build()
	})
	return global, err
}

// L returns the global logger, falling back to a no-op logger when Init
// has not run (keeps library packages usable from tests).
func L() *zap.Logger {
	if global == nil {
		return zap.NewNop()
	}
	return global
}
