// Package main wires the harvest pipeline into a batch CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/browser/headless"
	"github.com/leadharvest/leadharvest/internal/config"
	"github.com/leadharvest/leadharvest/internal/enrich"
	"github.com/leadharvest/leadharvest/internal/export"
	"github.com/leadharvest/leadharvest/internal/harvest"
	"github.com/leadharvest/leadharvest/internal/logging"
	"github.com/leadharvest/leadharvest/internal/pacing"
	"github.com/leadharvest/leadharvest/internal/store/postgres"
	"github.com/leadharvest/leadharvest/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	keyword := flag.String("keyword", "", "Business keyword to search for")
	location := flag.String("location", "", "Location to search in")
	source := flag.String("source", "both", "Source to harvest from (google|yelp|both)")
	maxResults := flag.Int("max-results", 50, "Maximum results per source")
	formats := flag.String("format", "csv,json", "Comma-separated output formats (csv,json)")
	flag.Parse()

	if *keyword == "" || *location == "" {
		fmt.Fprintln(os.Stderr, "both -keyword and -location are required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *keyword, *location, *source, *maxResults, *formats); err != nil {
		logger.Error("harvest failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	keyword, location, source string,
	maxResults int,
	formats string,
) error {
	src, err := harvest.ParseSource(source)
	if err != nil {
		return err
	}
	exportFormats, err := parseFormats(formats)
	if err != nil {
		return err
	}

	metricsSrv := startMetrics(cfg.Metrics.Port, logger)

	pacer, err := pacing.New(pacing.Config{
		MinDelay:         cfg.MinDelay(),
		MaxDelay:         cfg.MaxDelay(),
		MaxActionsPerSec: cfg.Pacing.MaxActionsPerSec,
	})
	if err != nil {
		return err
	}

	browser := headless.New(headless.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
	})
	defer browser.Close()

	harvester := harvest.NewHarvester(browser, pacer, logger.Named("harvester"), harvest.HarvesterConfig{
		MaxLoadRetries:  cfg.Harvest.MaxLoadRetries,
		MaxScrollStalls: cfg.Harvest.MaxScrollStalls,
		MaxScrolls:      cfg.Harvest.MaxScrolls,
	})

	query := harvest.Query{
		Keyword:    keyword,
		Location:   location,
		MaxResults: maxResults,
		Source:     src,
	}

	var batches [][]harvest.Record
	for _, s := range query.Sources() {
		perSource := query
		perSource.Source = s
		records, runErr := harvester.Run(ctx, perSource)
		if runErr != nil {
			// Errored runs still surface their partial record set.
			logger.Error("run errored, keeping partial results",
				zap.String("source", string(s)),
				zap.Int("records", len(records)),
				zap.Error(runErr),
			)
		}
		batches = append(batches, records)
	}

	canonical := harvest.Merge(batches...)
	logger.Info("canonical set built", zap.Int("records", len(canonical)))

	if cfg.Enrich.Enabled {
		enricher := enrich.NewEmailEnricher(enrich.Config{
			UserAgent: cfg.Browser.UserAgent,
			Timeout:   time.Duration(cfg.Enrich.TimeoutSec) * time.Second,
			MaxPages:  cfg.Enrich.MaxPages,
		}, pacer, logger.Named("enrich"))
		canonical = enricher.Enrich(ctx, canonical)
	}

	exporter := export.New(logger.Named("export"))
	now := time.Now()
	for _, format := range exportFormats {
		dest := filepath.Join(cfg.Export.OutputDir, outputFileName(keyword, location, now, format))
		if err := exporter.Export(canonical, format, dest); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
	}

	if cfg.DB.DSN != "" {
		if err := storeLeads(ctx, cfg, now, canonical); err != nil {
			return err
		}
	}

	shutdownMetrics(metricsSrv, logger)
	return nil
}

func storeLeads(ctx context.Context, cfg config.Config, harvestedAt time.Time, records []harvest.Record) error {
	store, err := postgres.NewLeadStore(ctx, postgres.LeadStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("open lead store: %w", err)
	}
	defer store.Close()
	if err := store.StoreLeads(ctx, harvestedAt, records); err != nil {
		return fmt.Errorf("store leads: %w", err)
	}
	return nil
}

func startMetrics(port int, logger *zap.Logger) *http.Server {
	if port <= 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint error", zap.Error(err))
		}
	}()
	return srv
}

func shutdownMetrics(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown error", zap.Error(err))
	}
}

func parseFormats(raw string) ([]export.Format, error) {
	var formats []export.Format
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "both" {
			return []export.Format{export.FormatCSV, export.FormatJSON}, nil
		}
		format, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats selected")
	}
	return formats, nil
}

// outputFileName builds {keyword}_{location}_{timestamp}.{ext} with
// filesystem-safe separators.
func outputFileName(keyword, location string, ts time.Time, format export.Format) string {
	sanitize := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), "_")
	}
	return fmt.Sprintf("%s_%s_%s.%s",
		sanitize(keyword),
		sanitize(location),
		ts.Format("20060102_150405"),
		format.Ext(),
	)
}
