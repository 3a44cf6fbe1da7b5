// Package logger provides diagnostic logging for bonomen
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where diagnostics go and how much of them
type Config struct {
	Level   string // debug, info, warn or error
	File    string // optional JSON log file
	Console bool   // human-readable output on stderr
}

var (
	mu       sync.RWMutex
	instance = zap.NewNop().Sugar()
	file     *os.File
	filePath string
)

// Init replaces the global logger. Until it is called every helper is a no-op.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var cores []zapcore.Core

	if cfg.Console {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	var f *os.File
	if cfg.File != "" {
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(f),
			level,
		))
	}

	l := zap.NewNop()
	if len(cores) > 0 {
		l = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	}

	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	instance = l.Sugar()
	file = f
	filePath = cfg.File

	if f != nil {
		hostname, _ := os.Hostname()
		instance.Infow("log started",
			"hostname", hostname,
			"os", runtime.GOOS+"/"+runtime.GOARCH,
			"go", runtime.Version(),
		)
	}
	return nil
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	mu.RLock()
	defer mu.RUnlock()
	if file == nil {
		return ""
	}
	if abs, err := filepath.Abs(filePath); err == nil {
		return abs
	}
	return filePath
}

// Close flushes the logger and closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	instance = zap.NewNop().Sugar()
}

func closeLocked() {
	_ = instance.Sync()
	if file != nil {
		file.Close()
		file = nil
		filePath = ""
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Section logs a section header for better readability
func Section(name string) {
	current().Infof("========== %s ==========", name)
}

// SubSection logs a subsection header
func SubSection(name string) {
	current().Infof("--- %s ---", name)
}

// Timing logs execution time for an operation
func Timing(operation string, start time.Time) {
	current().Debugw("[TIMING] "+operation+" completed", "elapsed", time.Since(start))
}

// ProcessInfo logs process information
func ProcessInfo(pid uint32, name, path string) {
	current().Debugw("process", "pid", pid, "name", name, "path", truncate(path, 200))
}

// DetectionInfo logs a finding
func DetectionInfo(observed, rule string, distance uint32, path string) {
	current().Infow("impersonation candidate",
		"observed", observed,
		"rule", rule,
		"distance", distance,
		"path", path,
	)
}

// APICall logs OS API calls
func APICall(api string, params ...interface{}) {
	current().Debugf("API Call: %s %v", api, params)
}

// APIResult logs OS API call results
func APIResult(api string, result interface{}, err error) {
	if err != nil {
		current().Debugf("API Result: %s failed: %v", api, err)
	} else {
		current().Debugf("API Result: %s success: %v", api, result)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
