// Package logging builds the zap logger used for run diagnostics.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger without timestamps writing to w (stdout when
// nil). Debug entries are only emitted when verbose is set.
func New(w io.Writer, verbose bool) *zap.Logger {
	if w == nil {
		w = os.Stdout
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// FailureLogger reports failed requests that are excluded from the summary.
type FailureLogger struct {
	log *zap.Logger
}

func NewFailureLogger(log *zap.Logger) *FailureLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &FailureLogger{log: log}
}

func (f *FailureLogger) LogFailure(err error) {
	f.log.Warn("request not counted due to error", zap.Error(err))
}
