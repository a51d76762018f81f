package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileLogger appends log messages to a file in the app-data log
// directory. Processes spawned by cron or launchd have no visible
// console, so this is often the only record of what a fired alarm did.
type FileLogger struct {
	file   *os.File
	logger *log.Logger
}

// NewFileLogger opens (or creates) the log file at path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &FileLogger{
		file:   f,
		logger: log.New(f, "", log.LstdFlags),
	}, nil
}

// Info logs an informational message with [INFO] prefix.
func (f *FileLogger) Info(format string, args ...interface{}) {
	f.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (f *FileLogger) Warning(format string, args ...interface{}) {
	f.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (f *FileLogger) Error(format string, args ...interface{}) {
	f.logger.Printf("[ERROR] "+format, args...)
}

// Close closes the underlying file. Safe to call multiple times.
func (f *FileLogger) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
