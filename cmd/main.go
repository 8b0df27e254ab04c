package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/gradelens/internal/adapters/http/api"
	"github.com/okian/gradelens/internal/adapters/http/site"
	"github.com/okian/gradelens/internal/adapters/http/swagger"
	"github.com/okian/gradelens/internal/adapters/repository"
	app "github.com/okian/gradelens/internal/app"
	"github.com/okian/gradelens/internal/config"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6

	// multipartOverhead is allowed on top of the file cap for form framing.
	multipartOverhead = 1 << 20
)

func main() {
	// System gauges are exported through the custom registry instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		return err
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, cfg.MetricsInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "server stopped")
	return nil
}

// newService resolves the schema and store from cfg and builds the service.
func newService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, error) {
	sc := schema.Default()
	if cfg.SchemaPath != "" {
		loaded, err := schema.Load(cfg.SchemaPath)
		if err != nil {
			return nil, err
		}
		sc = loaded
	}

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, sc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	th := sc.ThresholdsDefault
	if cfg.LowPercentile != nil {
		th.LowPercentile = *cfg.LowPercentile
	}
	if cfg.DropThreshold != nil {
		th.Drop = *cfg.DropThreshold
	}

	return app.New(
		app.WithSchema(sc),
		app.WithStore(store),
		app.WithLogger(l),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		app.WithDefaultWeights(cfg.Weights),
		app.WithDefaultThresholds(th),
		app.WithPeriodLabels(cfg.PeriodLabels(sc.PeriodLabels())),
	), nil
}

// newMux registers the landing page, docs and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes()+multipartOverhead),
		api.WithLogger(l.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var avgPauseMs float64
	if m.NumGC > 0 {
		avgPauseMs = float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine(), avgPauseMs)
}
