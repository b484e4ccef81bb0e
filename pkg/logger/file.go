package logger

import (
	"fmt"
	"log"
	"os"
)

// FileLogger appends log output to a file. Close releases the file
// handle.
type FileLogger struct {
	*StandardLogger
	f *os.File
}

// NewFileLogger opens (or creates) the log file at path for appending.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return &FileLogger{
		StandardLogger: NewStandardLogger(log.New(f, "", log.LstdFlags)),
		f:              f,
	}, nil
}

// Close releases the underlying file.
func (l *FileLogger) Close() error {
	return l.f.Close()
}

// Ensure FileLogger satisfies the Logger interface.
var _ Logger = (*FileLogger)(nil)
