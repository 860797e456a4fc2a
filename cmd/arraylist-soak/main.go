// cmd/arraylist-soak/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/michaelgoldpiano/datastructures/internal/config"
	"github.com/michaelgoldpiano/datastructures/internal/logging"
	"github.com/michaelgoldpiano/datastructures/internal/metrics"
	"github.com/michaelgoldpiano/datastructures/internal/soak"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "arraylist-soak: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.GetEnvOrDefault("ARRAYLIST_CONFIG", ""))
	if err != nil {
		return err
	}
	config.LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	format := logging.FormatJSON
	if cfg.Log.Development {
		format = logging.FormatText
	}
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:       cfg.Log.Level,
		Format:      format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	runner := soak.NewRunner(&soak.Config{
		Lists:         cfg.Soak.Lists,
		Operations:    cfg.Soak.Operations,
		RatePerSecond: cfg.Soak.RatePerSecond,
		Burst:         cfg.Soak.Burst,
		BudgetSlots:   cfg.Soak.BudgetSlots,
		PoolIdle:      cfg.Soak.PoolIdle,
		Seed:          cfg.Soak.Seed,
		Policy:        cfg.Policy.ToPolicy(),
	}, logger.Named("soak"), collector, collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A typed nil *Report inside the interface would defeat the handler's
	// nil check.
	report := func() interface{} {
		if rep := runner.Latest(); rep != nil {
			return rep
		}
		return nil
	}

	var server *http.Server
	if cfg.Server.MetricsPort > 0 {
		handler := metrics.NewHandler(collector, reg, report, logger.Named("http"))
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:           handler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
				stop()
			}
		}()
	}

	rep, err := runner.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("soak run interrupted")
	case err != nil:
		logger.Error("soak run failed", zap.Error(err))
	}

	if rep != nil && cfg.Soak.ReportPath != "" {
		if werr := soak.WriteReport(cfg.Soak.ReportPath, rep); werr != nil {
			logger.Error("failed to write report", zap.Error(werr))
		} else {
			logger.Info("report written", zap.String("path", cfg.Soak.ReportPath))
		}
	}

	if server != nil {
		// Keep serving the final report until a signal arrives
		if ctx.Err() == nil {
			logger.Info("soak run complete; serving report until interrupted")
			<-ctx.Done()
		}
		logger.Info("shutting down metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if rep != nil && !rep.Stable {
		return fmt.Errorf("%d invariant violations", rep.ViolationCount)
	}
	return nil
}
