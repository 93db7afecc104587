// Package logging provides the process-wide logger. Lines are stamped
// [YYYY-MM-DD HH:MM:SS] and written to stdout; TeeFile mirrors them to
// the run log next to the published report.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

var (
	disabled = false
	debug    = false
	logger   = log.New(os.Stdout, "", 0)
	logFile  *os.File
)

// Disable turns off all logging
func Disable() {
	disabled = true
}

// Enable turns logging back on
func Enable() {
	disabled = false
}

// SetDebug toggles debug-level lines. They are hidden by default.
func SetDebug(on bool) {
	debug = on
}

// TeeFile mirrors every subsequent line to the file at path, appending
// if it already exists. Calling it again swaps the destination.
func TeeFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// CloseFile stops mirroring and returns output to stdout only.
func CloseFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
		logger.SetOutput(os.Stdout)
	}
}

func stamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func output(msg string) {
	if !disabled {
		logger.Printf("[%s] %s", stamp(), msg)
	}
}

// Info logs an info message
func Info(v ...any) {
	output(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	output(fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(v ...any) {
	output(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	output(fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(v ...any) {
	output(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	output(fmt.Sprintf(format, v...))
}

// Debug logs a debug message (only when SetDebug(true))
func Debug(v ...any) {
	if !debug {
		return
	}
	output(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	if !debug {
		return
	}
	output(fmt.Sprintf(format, v...))
}
