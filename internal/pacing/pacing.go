// Package pacing enforces minimum, randomized spacing between outbound
// actions so harvest runs stay courteous to the remote service.
package pacing

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadharvest/leadharvest/internal/telemetry"
)

// Config controls a Controller.
type Config struct {
	// MinDelay and MaxDelay bound the uniform random wait applied before
	// every action. Both zero selects the defaults (1s..3s).
	MinDelay time.Duration
	MaxDelay time.Duration
	// MaxActionsPerSec optionally layers a token-bucket ceiling on top of
	// the randomized spacing. Zero disables the ceiling.
	MaxActionsPerSec float64
}

// Controller blocks the calling flow for a duration drawn uniformly from
// [MinDelay, MaxDelay] before each action. State is per-instance: two
// controllers never share pacing budget.
type Controller struct {
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter

	mu  sync.Mutex
	rng *rand.Rand
}

// New validates cfg and builds a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.MinDelay == 0 && cfg.MaxDelay == 0 {
		cfg.MinDelay = time.Second
		cfg.MaxDelay = 3 * time.Second
	}
	if cfg.MinDelay < 0 || cfg.MaxDelay < 0 {
		return nil, fmt.Errorf("pacing delays must be >= 0")
	}
	if cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("max delay %v is below min delay %v", cfg.MaxDelay, cfg.MinDelay)
	}
	var limiter *rate.Limiter
	if cfg.MaxActionsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxActionsPerSec), 1)
	}
	return &Controller{
		min:     cfg.MinDelay,
		max:     cfg.MaxDelay,
		limiter: limiter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Wait blocks for the drawn delay, respecting the context. The only
// error it returns is the context's.
func (c *Controller) Wait(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pacing ceiling: %w", err)
		}
	}

	delay := c.delay()
	if delay <= 0 {
		return ctx.Err()
	}

	start := time.Now()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pacing wait: %w", ctx.Err())
	case <-timer.C:
		telemetry.ObservePacingDelay(time.Since(start))
		return nil
	}
}

func (c *Controller) delay() time.Duration {
	if c.max == c.min {
		return c.min
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.min + time.Duration(c.rng.Int63n(int64(c.max-c.min)+1))
}
