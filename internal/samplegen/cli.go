package samplegen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/gradelens/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sample_class_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the sample class tool.
func ShowHelp() {
	os.Stdout.WriteString(`GradeLens Sample Class Tool
===========================

Generates a realistic two-semester class sheet with Hebrew headers and,
when a service URL is given, imports it, analyzes it and verifies that
exactly the declining and struggling students are flagged.

Usage:
  go run ./cmd/sample-class [options]

Options:
  -url string
        Base URL of the service; empty only writes the sheet (default "http://localhost:9080")
  -students int
        Number of students to generate (default 120)
  -classes int
        Number of classes the students are spread over (default 4)
  -workers int
        Concurrent profile fetches (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Sheet file to write, .csv or .xlsx (default: none)
  -log string
        Log file for run output (default: sample_class_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Generate, import and verify against a local service
  go run ./cmd/sample-class

  # Only write an Excel sheet for manual upload
  go run ./cmd/sample-class -url "" -output samples/class.xlsx

  # Larger run with verbose output
  go run ./cmd/sample-class -students 1000 -workers 16 -verbose
`)
}
