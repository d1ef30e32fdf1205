package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and provides structured logging to both console
// and a rotating log file.
//
// Example:
//
//	logger, err := NewLogger(true, "traitforge.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("run started", zap.Int("collection_size", 100))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	// isDevelopment indicates if running in development mode
	isDevelopment bool

	// logFilePath is the path to the log file
	logFilePath string
}

// NewLogger creates a new Logger instance configured for the given environment.
//
// In development mode the console output is colored and the default level is
// debug; in production mode both outputs are JSON at info level. The level can
// be overridden via the TRAITFORGE_LOG_LEVEL environment variable. Log
// rotation is configured automatically via the file writer defaults.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	var defaultLevel zapcore.Level
	if isDevelopment {
		defaultLevel = zapcore.DebugLevel
	} else {
		defaultLevel = zapcore.InfoLevel
	}
	level := ParseLogLevel("TRAITFORGE_LOG_LEVEL", defaultLevel)

	core := NewMultiCore(level, logFilePath, isDevelopment)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // Skip this wrapper layer
	)

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewLoggerWithCore creates a Logger over an explicit core. This variant is
// used by tests to capture log output.
func NewLoggerWithCore(core zapcore.Core, isDevelopment bool) *Logger {
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
	}
}

// NewNopLogger returns a Logger that discards everything. Used by tests that
// need a Logger but not its output.
func NewNopLogger() *Logger {
	zapLogger := zap.NewNop()
	return &Logger{
		zap:   zapLogger,
		sugar: zapLogger.Sugar(),
	}
}

// Sync flushes any buffered log entries.
// Applications should call Sync before exiting to ensure all logs are written.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs a message at InfoLevel with optional structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs a message at WarnLevel with optional structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs a message at ErrorLevel with optional structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, fields...)
}

// Debugf logs a formatted message at DebugLevel.
func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

// Infof logs a formatted message at InfoLevel.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// Warnf logs a formatted message at WarnLevel.
func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

// Errorf logs a formatted message at ErrorLevel.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// With creates a child logger with additional fields that will be included
// in all log entries from the child. Useful for per-run context such as the
// run correlation ID.
func (l *Logger) With(fields ...zap.Field) *Logger {
	newZap := l.zap.With(fields...)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named adds a sub-logger name. Logger names appear in log output and
// help identify the source of log entries.
//
// Example:
//
//	samplerLog := logger.Named("sampler")
//	builderLog := logger.Named("builder")
func (l *Logger) Named(name string) *Logger {
	newZap := l.zap.Named(name)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Zap returns the underlying zap.Logger for direct access to methods not
// exposed by this wrapper.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment returns true if the logger is configured for development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path to the log file.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}
