package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	systemclock "github.com/kidzout/harvester/internal/clock/system"
	"github.com/kidzout/harvester/internal/config"
	collyfetcher "github.com/kidzout/harvester/internal/fetcher/colly"
	"github.com/kidzout/harvester/internal/fetcher/detector"
	"github.com/kidzout/harvester/internal/fetcher/headless"
	"github.com/kidzout/harvester/internal/fetcher/resilient"
	"github.com/kidzout/harvester/internal/geocode"
	"github.com/kidzout/harvester/internal/harvest"
	"github.com/kidzout/harvester/internal/logging"
	"github.com/kidzout/harvester/internal/quality"
	"github.com/kidzout/harvester/internal/source"
	storefile "github.com/kidzout/harvester/internal/storage/file"
	"github.com/kidzout/harvester/internal/telemetry"
	"github.com/kidzout/harvester/internal/throttle"
)

// newHarvestCmd creates the 'harvest' subcommand, which executes one full
// harvest run and exits.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs one harvest across all configured sources",
		RunE:  runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return err
	}

	clock := systemclock.New()
	gate := throttle.New(cfg.BaseInterval(), cfg.MaxInterval(), clock)

	inner := collyfetcher.New(collyfetcher.Config{
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
	})

	var opts []resilient.Option
	if cfg.Headless.Enabled {
		browser, err := headless.NewChromedp(headless.Config{MaxParallel: cfg.Headless.MaxParallel})
		if err != nil {
			return fmt.Errorf("init headless fetcher: %w", err)
		}
		defer browser.Close()
		opts = append(opts, resilient.WithHeadless(browser, detector.NewHeuristic(0)))
	}
	fetcher := resilient.New(inner, gate, resilient.Config{MaxRetries: cfg.Fetch.MaxRetries}, logger, opts...)

	var resolver source.Resolver
	if cfg.Geocode.Enabled {
		resolver = geocode.New(
			storefile.NewGeocodeCacheStore(cfg.GeocodeCachePath),
			geocode.Config{
				BaseURL:           cfg.Geocode.BaseURL,
				UserAgent:         cfg.Geocode.UserAgent,
				RequestsPerSecond: cfg.Geocode.RequestsPerSecond,
			},
			logger,
		)
	}

	tracker := quality.New(storefile.NewStatsStore(cfg.StatsPath), clock, logger)
	harvesters := source.New(fetcher, resolver, clock, source.MunichDefaults, logger)

	orchestrator := harvest.New(
		harvesters,
		tracker,
		storefile.NewOutputStore(cfg.OutputPath),
		clock,
		harvest.Config{Workers: cfg.Workers, ManualEventsPath: cfg.ManualEventsPath},
		logger,
	)

	summary, err := orchestrator.Run(ctx, sources)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("harvest run: %w", err)
	}

	logger.Info("done",
		zap.String("run_id", summary.RunID),
		zap.Int("events", summary.Events),
		zap.Int("locations", summary.Locations),
		zap.Bool("preserved_previous_output", summary.Preserved),
	)
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}
