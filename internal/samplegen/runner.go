package samplegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/gradelens/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// defaultSheetName names the upload when no output file is configured.
const defaultSheetName = "class.csv"

// Run generates a class sheet, saves it and, when a base URL is set, drives
// it through import, analysis, export and profile lookups, verifying each.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting gradelens sample class run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("students", config.Students),
		logger.Int("classes", config.Classes),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("output", config.OutputFile),
		logger.Bool("verbose", config.Verbose))

	class, err := Generate(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("class generation failed: %w", err)
	}

	name := defaultSheetName
	if config.OutputFile != "" {
		name = filepath.Base(config.OutputFile)
	}
	var sheet bytes.Buffer
	if err := class.Encode(&sheet, name); err != nil {
		return fmt.Errorf("sheet encoding failed: %w", err)
	}
	if config.OutputFile != "" {
		if err := saveSheet(ctx, config.OutputFile, sheet.Bytes()); err != nil {
			return err
		}
	}

	if config.BaseURL != "" {
		if err := exercise(ctx, config, class, name, sheet.Bytes(), stats); err != nil {
			return err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// exercise runs the service steps against an encoded sheet.
func exercise(ctx context.Context, config *Config, class *Class, name string, sheet []byte, stats *Stats) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Ask for a column mapping
	resp, err := client.Upload(ctx, "/mappings/suggest", name, sheet, nil)
	if err != nil {
		return fmt.Errorf("mapping suggestion failed: %w", err)
	}
	var sg suggestion
	if err := decodeResponse(resp, &sg, http.StatusOK); err != nil {
		return fmt.Errorf("mapping suggestion failed: %w", err)
	}
	if len(sg.MissingRequired) > 0 {
		return fmt.Errorf("suggested mapping misses required fields %v", sg.MissingRequired)
	}
	if sg.Rows != len(class.Rows) {
		return fmt.Errorf("suggestion saw %d rows, want %d", sg.Rows, len(class.Rows))
	}
	if config.Verbose {
		logger.Get().Info(ctx, "suggested mapping", logger.Any("mapping", sg.Mapping))
	}

	// Step 3: Import with the suggested mapping
	mappingJSON, err := json.Marshal(sg.Mapping)
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	resp, err = client.Upload(ctx, "/imports", name, sheet, map[string]string{"mapping": string(mappingJSON)})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	var imp importResult
	if err := decodeResponse(resp, &imp, StatusCreated, StatusOK); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	stats.RowsImported = imp.Import.Rows
	logger.Get().Info(ctx, "sheet imported",
		logger.String("importID", imp.Import.ID),
		logger.Int("rows", imp.Import.Rows),
		logger.Bool("duplicate", imp.Duplicate))

	// Step 4: Analyze and verify
	req := map[string]any{
		"low_percentile": LowPercentile,
		"drop":           DropThreshold,
		"import_id":      imp.Import.ID,
	}
	resp, err = client.PostJSON(ctx, "/analysis", req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	var res analysisResult
	if err := decodeResponse(resp, &res, StatusOK); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err := verifyAnalysis(ctx, class, &res, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 5: Export flagged rows
	if err := checkExport(ctx, client, req, 2*stats.Flagged); err != nil {
		return fmt.Errorf("export verification failed: %w", err)
	}

	// Step 6: Fetch every profile concurrently
	if err := fetchProfiles(ctx, config, client, class, stats); err != nil {
		return fmt.Errorf("profile retrieval failed: %w", err)
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Any 200 is healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkExport downloads the flagged CSV and compares its row count.
func checkExport(ctx context.Context, client *HTTPClient, req map[string]any, want int) error {
	resp, err := client.PostJSON(ctx, "/analysis/export", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("export failed with status: %d", resp.StatusCode)
	}
	got, err := strconv.Atoi(resp.Header.Get("X-Row-Count"))
	if err != nil {
		return fmt.Errorf("bad X-Row-Count header: %w", err)
	}
	if got != want {
		return fmt.Errorf("export has %d rows, want %d", got, want)
	}
	logger.Get().Info(ctx, "export verified", logger.Int("rows", got))
	return nil
}

// fetchProfiles loads and verifies each student profile with a bounded
// number of concurrent requests.
func fetchProfiles(ctx context.Context, config *Config, client *HTTPClient, class *Class, stats *Stats) error {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	logger.Get().Info(ctx, "fetching profiles",
		logger.Int("students", len(class.Students)),
		logger.Int("workers", workers))

	var fetched, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range class.Students {
		g.Go(func() error {
			resp, err := client.Get(gctx, "/students/"+url.PathEscape(s.Name))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return fmt.Errorf("profile %q: %w", s.Name, err)
			}
			var p profileResult
			if err := decodeResponse(resp, &p, StatusOK); err != nil {
				atomic.AddInt64(&failed, 1)
				return fmt.Errorf("profile %q: %w", s.Name, err)
			}
			if err := verifyProfile(class, s.Name, &p); err != nil {
				atomic.AddInt64(&failed, 1)
				return err
			}
			n := atomic.AddInt64(&fetched, 1)
			if config.Verbose {
				logger.Get().Debug(gctx, "profile verified",
					logger.String("student", s.Name),
					logger.Int("fetched", int(n)))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.ProfilesFetched = int(atomic.LoadInt64(&fetched))
	stats.ProfilesFailed = int(atomic.LoadInt64(&failed))
	return err
}

// saveSheet writes the encoded sheet to path.
func saveSheet(ctx context.Context, path string, sheet []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, sheet, filePermission); err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}
	logger.Get().Info(ctx, "sheet saved to file", logger.String("filename", path))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var flaggedRate float64
	if stats.StudentsGenerated > 0 {
		flaggedRate = float64(stats.Flagged) / float64(stats.StudentsGenerated) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("studentsGenerated", stats.StudentsGenerated),
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("rowsImported", stats.RowsImported),
		logger.Int("rowsAnalyzed", stats.RowsAnalyzed),
		logger.Int("flaggedStudents", stats.Flagged),
		logger.Int("profilesFetched", stats.ProfilesFetched),
		logger.Int("profilesFailed", stats.ProfilesFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("flaggedRate", flaggedRate))
}
