package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore creates a zapcore.Core that tees output to both console and a
// rotating log file.
//
// The file output always uses JSON encoding for structured log processing.
// The console output uses a colored human-readable format in development mode
// and JSON in production mode.
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) zapcore.Core {
	return NewMultiCoreWithWriters(level, zapcore.AddSync(os.Stdout), NewFileWriter(filePath), isDev)
}

// NewMultiCoreWithWriters creates a zapcore.Core that tees output to the
// provided writers. This variant exists for tests and special output
// destinations.
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	// File always uses JSON encoder
	fileEncoder := zapcore.NewJSONEncoder(NewEncoderConfig())
	fileCore := zapcore.NewCore(fileEncoder, fileWriter, level)

	// Console encoder depends on mode
	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, level)

	return zapcore.NewTee(consoleCore, fileCore)
}
