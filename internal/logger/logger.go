package logger

import (
	"os"

	"github.com/jasonbaker/agentm/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Development mode writes colored console
// output to stderr; otherwise JSON at info level, or debug level when verbose
// store logging is on so that its messages are not filtered out.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zc.Build()
	}

	zc := zap.NewProductionConfig()
	if cfg.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// NewConsole returns a minimal logger for interactive commands, writing
// plain messages to stderr.
func NewConsole(verbose bool) *zap.Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      zapcore.LowercaseLevelEncoder,
		ConsoleSeparator: " ",
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level))
}
