package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field aliases for zap fields
type Field = zapcore.Field

// Helper functions for creating fields
var (
	// String creates a field with a string value
	String = zap.String
	// Strings creates a field with a string slice value
	Strings = zap.Strings
	// Int creates a field with an int value
	Int = zap.Int
	// Int64 creates a field with an int64 value
	Int64 = zap.Int64
	// Float64 creates a field with a float64 value
	Float64 = zap.Float64
	// Bool creates a field with a bool value
	Bool = zap.Bool
	// Time creates a field with a time.Time value
	Time = zap.Time
	// Duration creates a field with a time.Duration value
	Duration = zap.Duration
	// Error creates a field with an error value
	Error = zap.Error
	// Any creates a field with any value
	Any = zap.Any
)

// nameWidth is the column width used for logger names in console output.
const nameWidth = 16

// Logger is a wrapper around zap.Logger
type Logger struct {
	*zap.Logger
}

// Config represents logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console

	// Output defaults to os.Stdout.
	Output io.Writer
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.ErrorLevel:
		enc.AppendString("\033[1;31m" + level.CapitalString() + "\033[0m")
	case zapcore.WarnLevel:
		enc.AppendString("\033[1;33m" + level.CapitalString() + "\033[0m")
	case zapcore.InfoLevel:
		enc.AppendString("\033[1;36m" + level.CapitalString() + "\033[0m")
	case zapcore.DebugLevel:
		enc.AppendString("\033[1;37m" + level.CapitalString() + "\033[0m")
	default:
		enc.AppendString(level.CapitalString())
	}
}

// fixedWidthNameEncoder keeps only the last dotted component of a logger
// name and pads or truncates it so console columns line up.
func fixedWidthNameEncoder(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(displayName(loggerName))
}

func displayName(loggerName string) string {
	parts := strings.Split(loggerName, ".")
	name := parts[len(parts)-1]
	if len(name) > nameWidth {
		return name[:nameWidth]
	}
	return name + strings.Repeat(" ", nameWidth-len(name))
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	// Caller info is noisy outside debug
	if level != zapcore.DebugLevel {
		encoderConfig.CallerKey = zapcore.OmitKey
	} else {
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}

	var encoder zapcore.Encoder
	switch config.Format {
	case "console":
		encoderConfig.EncodeLevel = coloredLevelEncoder
		encoderConfig.EncodeName = fixedWidthNameEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoderConfig.EncodeName = zapcore.FullNameEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", config.Format)
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)

	opts := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}

	return &Logger{Logger: zap.New(core, opts...)}, nil
}

// NewNop returns a logger that discards everything. Used by tests and the CLI.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ParseLevel parses the log level string
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
}

// With returns a logger with the given fields
func (l *Logger) With(fields ...zapcore.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a logger with the given name
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithRequestID returns a logger with the request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(zap.String("request_id", requestID))
}

// WithStation returns a logger tagged with an ICAO station code
func (l *Logger) WithStation(icao string) *Logger {
	return l.With(zap.String("station", icao))
}
