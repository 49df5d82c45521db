package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogDirEnv overrides the directory log files are written to
	LogDirEnv = "PLANNER_LOG_DIR"

	// LogLevelEnv sets the console level (debug, info, warn, error)
	LogLevelEnv = "PLANNER_LOG_LEVEL"

	defaultLogsDir = "logs"
	defaultEnvName = "planner"
)

// InitLogger initializes a zap logger with console and file outputs.
// env is used to prefix the log file name. The console writes to stderr so
// JSON printed on stdout stays machine-readable.
func InitLogger(env string) (*zap.Logger, error) {
	if env == "" {
		env = defaultEnvName
	}

	consoleLevel := zapcore.InfoLevel
	if level := os.Getenv(LogLevelEnv); level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", LogLevelEnv, err)
		}
		consoleLevel = parsed
	}

	// Create logs directory if it doesn't exist
	logsDir := defaultLogsDir
	if dir := os.Getenv(LogDirEnv); dir != "" {
		logsDir = dir
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Create log file with timestamp
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", env, timestamp))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return newLogger(zapcore.AddSync(os.Stderr), consoleLevel, zapcore.AddSync(logFile)), nil
}

// newLogger tees a coloured console core and a JSON file core (always at debug level)
func newLogger(console zapcore.WriteSyncer, consoleLevel zapcore.Level, file zapcore.WriteSyncer) *zap.Logger {
	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.TimeKey = "timestamp"
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), console, consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), file, zapcore.DebugLevel),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
