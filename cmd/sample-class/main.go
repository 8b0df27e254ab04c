package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/gradelens/internal/samplegen"
)

// Default configuration constants.
const (
	defaultStudents   = 120
	defaultClasses    = 4
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service; empty only writes the sheet")
		students   = flag.Int("students", defaultStudents, "Number of students to generate")
		classes    = flag.Int("classes", defaultClasses, "Number of classes the students are spread over")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent profile fetches")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Sheet file to write, .csv or .xlsx")
		logFile    = flag.String("log", "", "Log file for run output (default: sample_class_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		samplegen.ShowHelp()
		return
	}

	if err := samplegen.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &samplegen.Config{
		BaseURL:    *baseURL,
		Students:   *students,
		Classes:    *classes,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if err := samplegen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
