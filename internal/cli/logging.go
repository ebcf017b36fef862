package cli

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the console logger for a generation run. Verbose mode
// lowers the level to debug; either way output goes to stderr so dry-run
// plans on stdout stay machine-readable.
func newLogger(verbose bool) (*zap.SugaredLogger, func()) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	log, err := cfg.Build()
	if err != nil {
		nop := zap.NewNop()
		return nop.Sugar(), func() {}
	}
	return log.Sugar(), func() { _ = log.Sync() }
}
