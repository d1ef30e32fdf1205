// Package logging provides structured logging for the engine.
//
// It is built from small composable pieces:
//   - encoder_config.go: standardized field names and encoders
//   - file_writer.go: rotating log file output via lumberjack
//   - multi_core.go: tee core writing to console and file
//   - log_level.go: log level parsing from the environment
//   - logger.go: the Logger wrapper over zap
package logging
