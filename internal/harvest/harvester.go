package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/telemetry"
)

// Run outcome labels reported to telemetry.
const (
	runStatusSucceeded = "succeeded"
	runStatusErrored   = "errored"
	runStatusCanceled  = "canceled"
)

// HarvesterConfig bounds the retry and scroll loops of a run.
type HarvesterConfig struct {
	// MaxLoadRetries is the number of navigation retries after the first
	// failed attempt.
	MaxLoadRetries int
	// MaxScrollStalls stops scrolling after this many consecutive scroll
	// actions that reveal no new listings.
	MaxScrollStalls int
	// MaxScrolls caps total scroll actions per run.
	MaxScrolls int
}

func (c HarvesterConfig) withDefaults() HarvesterConfig {
	if c.MaxLoadRetries < 0 {
		c.MaxLoadRetries = 0
	}
	if c.MaxLoadRetries == 0 {
		c.MaxLoadRetries = 1
	}
	if c.MaxScrollStalls <= 0 {
		c.MaxScrollStalls = 3
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = 20
	}
	return c
}

// Harvester drives page navigation and scrolling for a single provider
// and turns visible listings into Records. One run is sequential and
// synchronous; concurrent runs need separate views but may share the
// Harvester, which keeps no per-run state.
type Harvester struct {
	browser   Browser
	pacer     Pacer
	extractor *Extractor
	logger    *zap.Logger
	cfg       HarvesterConfig
}

// NewHarvester constructs a Harvester.
func NewHarvester(browser Browser, pacer Pacer, logger *zap.Logger, cfg HarvesterConfig) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		browser:   browser,
		pacer:     pacer,
		extractor: NewExtractor(),
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}
}

// Run executes one harvest for a concrete provider and returns at most
// q.MaxResults records. The returned slice is always finite and may be
// partial: cancellation yields whatever was accumulated with a nil
// error, while an exhausted navigation retry budget yields the partial
// slice together with the run error.
func (h *Harvester) Run(ctx context.Context, q Query) ([]Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Source == SourceBoth {
		return nil, errors.New("run requires a concrete source; expand with Query.Sources")
	}

	logger := h.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("source", string(q.Source)),
		zap.String("keyword", q.Keyword),
		zap.String("location", q.Location),
	)
	logger.Info("run started",
		zap.String("state", string(StateLoading)),
		zap.Int("max_results", q.MaxResults),
	)

	view, err := h.load(ctx, q, logger)
	if err != nil {
		if ctx.Err() != nil {
			telemetry.ObserveRun(string(q.Source), runStatusCanceled)
			return []Record{}, nil
		}
		logger.Error("run errored", zap.String("state", string(StateErrored)), zap.Error(err))
		telemetry.ObserveRun(string(q.Source), runStatusErrored)
		return []Record{}, err
	}
	defer func() {
		if closeErr := view.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Warn("view close failed", zap.Error(closeErr))
		}
	}()

	listings, err := h.scroll(ctx, view, q, logger)
	if err != nil {
		logger.Error("run errored", zap.String("state", string(StateErrored)), zap.Error(err))
		telemetry.ObserveRun(string(q.Source), runStatusErrored)
		return []Record{}, err
	}

	records, canceled := h.extract(ctx, q, listings, logger)
	if canceled {
		logger.Info("run canceled, returning partial results", zap.Int("records", len(records)))
		telemetry.ObserveRun(string(q.Source), runStatusCanceled)
		return records, nil
	}

	logger.Info("run completed",
		zap.String("state", string(StateDone)),
		zap.Int("records", len(records)),
		zap.Int("listings_seen", len(listings)),
	)
	telemetry.ObserveRun(string(q.Source), runStatusSucceeded)
	telemetry.ObserveRecords(string(q.Source), len(records))
	return records, nil
}

// load navigates to the results view, retrying up to the configured
// bound with a fresh pacing wait before every attempt.
func (h *Harvester) load(ctx context.Context, q Query, logger *zap.Logger) (ResultsView, error) {
	var lastErr error
	attempts := h.cfg.MaxLoadRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := h.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}
		view, err := h.browser.Open(ctx, q.Source, q.Keyword, q.Location)
		if err == nil {
			return view, nil
		}
		lastErr = err
		logger.Warn("navigation failed",
			zap.String("state", string(StateLoading)),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("load results after %d attempts: %w", attempts, lastErr)
}

// scroll reveals listings until MaxResults candidates are visible or no
// new listings appear after the configured number of stalled scrolls.
func (h *Harvester) scroll(ctx context.Context, view ResultsView, q Query, logger *zap.Logger) ([]string, error) {
	listings, err := view.Listings(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate listings: %w", err)
	}

	stalls := 0
	for scrolls := 0; len(listings) < q.MaxResults && stalls < h.cfg.MaxScrollStalls && scrolls < h.cfg.MaxScrolls; scrolls++ {
		if ctx.Err() != nil {
			break
		}
		if err := h.pacer.Wait(ctx); err != nil {
			break
		}
		if err := view.Scroll(ctx); err != nil {
			logger.Warn("scroll failed", zap.String("state", string(StateScrolling)), zap.Error(err))
			stalls++
			continue
		}
		next, err := view.Listings(ctx)
		if err != nil {
			logger.Warn("listing refresh failed", zap.String("state", string(StateScrolling)), zap.Error(err))
			stalls++
			continue
		}
		if len(next) <= len(listings) {
			stalls++
		} else {
			stalls = 0
		}
		listings = next
	}

	logger.Debug("scrolling finished",
		zap.String("state", string(StateScrolling)),
		zap.Int("listings", len(listings)),
		zap.Int("stalls", stalls),
	)
	return listings, nil
}

// extract runs the field extractor over each visible listing with a
// pacing wait in between. Listing-level failures are logged and skipped.
// The bool result reports early cancellation.
func (h *Harvester) extract(ctx context.Context, q Query, listings []string, logger *zap.Logger) ([]Record, bool) {
	records := make([]Record, 0, min(len(listings), q.MaxResults))
	for i, listing := range listings {
		if len(records) >= q.MaxResults {
			break
		}
		if ctx.Err() != nil {
			return records, true
		}
		if err := h.pacer.Wait(ctx); err != nil {
			return records, true
		}
		rec, err := h.extractor.Extract(q.Source, listing)
		if err != nil {
			logger.Warn("listing extraction failed",
				zap.String("state", string(StateExtracting)),
				zap.Int("listing_index", i),
				zap.Error(err),
			)
			telemetry.ObserveListingSkipped(string(q.Source))
			continue
		}
		records = append(records, rec)
	}
	return records, false
}
