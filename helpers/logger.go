package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sjsage522/listingscout/logger"
)

// LoggerInterface defines the interface for run journal implementations
type LoggerInterface interface {
	LogError(source string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends per-source failures to an error journal file
type Logger struct {
	errorFile string
	mu        sync.Mutex
}

// NewLogger creates a new journal writing to errorFile
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError appends an error line with source name and timestamp
func (l *Logger) LogError(source string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.errorFile); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fileErr != nil {
		logger.Error("failed to open error journal %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, source, err.Error()); err != nil {
		logger.Error("failed to write error journal %s: %v", l.errorFile, err)
	}
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
