// Package enrich fills record fields that listing pages do not expose,
// by visiting the business's own website.
package enrich

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/harvest"
)

var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// contactAnchors mark links worth following when the landing page shows
// no address.
var contactAnchors = []string{
	"contact",
	"kontakt",
	"about",
	"team",
	"impressum",
}

// Config controls the email hunter.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxPages bounds how many pages per site are visited.
	MaxPages int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	return c
}

// EmailEnricher hunts a contact email on each record's website. Records
// stay immutable: enrichment returns corrected copies.
type EmailEnricher struct {
	cfg    Config
	pacer  harvest.Pacer
	logger *zap.Logger
}

// NewEmailEnricher constructs an EmailEnricher.
func NewEmailEnricher(cfg Config, pacer harvest.Pacer, logger *zap.Logger) *EmailEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailEnricher{cfg: cfg.withDefaults(), pacer: pacer, logger: logger}
}

// Enrich returns a new slice where records carrying a website but no
// email have the email filled in when one can be found. Failures are
// per-record: the original record is kept and the run continues.
func (e *EmailEnricher) Enrich(ctx context.Context, records []harvest.Record) []harvest.Record {
	out := make([]harvest.Record, 0, len(records))
	for _, rec := range records {
		if ctx.Err() != nil || rec.Website == "" || rec.Email != "" {
			out = append(out, rec)
			continue
		}
		if err := e.pacer.Wait(ctx); err != nil {
			out = append(out, rec)
			continue
		}
		email, err := e.huntEmail(ctx, rec.Website)
		if err != nil {
			e.logger.Warn("email hunt failed",
				zap.String("name", rec.Name),
				zap.String("website", rec.Website),
				zap.Error(err),
			)
			out = append(out, rec)
			continue
		}
		if email != "" {
			corrected := rec
			corrected.Email = email
			rec = corrected
		}
		out = append(out, rec)
	}
	return out
}

// huntEmail crawls the site's landing page and its most promising
// contact-style links, bounded by MaxPages, looking for a mailto link or
// an address in the page body.
func (e *EmailEnricher) huntEmail(ctx context.Context, website string) (string, error) {
	root, err := url.Parse(ensureScheme(website))
	if err != nil {
		return "", fmt.Errorf("parse website %q: %w", website, err)
	}
	if root.Hostname() == "" {
		return "", fmt.Errorf("website %q has no host", website)
	}

	c := colly.NewCollector(colly.MaxDepth(2))
	c.AllowedDomains = hostVariants(root.Hostname())
	c.SetRequestTimeout(e.cfg.Timeout)
	if e.cfg.UserAgent != "" {
		c.UserAgent = e.cfg.UserAgent
	}

	var found string
	visited := 0

	c.OnRequest(func(r *colly.Request) {
		if found != "" || visited >= e.cfg.MaxPages {
			r.Abort()
			return
		}
		visited++
	})

	c.OnHTML("a[href^='mailto:']", func(el *colly.HTMLElement) {
		if found != "" {
			return
		}
		found = sanitizeEmail(strings.TrimPrefix(el.Attr("href"), "mailto:"))
	})

	c.OnResponse(func(r *colly.Response) {
		if found != "" {
			return
		}
		found = sanitizeEmail(emailPattern.FindString(string(r.Body)))
	})

	c.OnHTML("a[href]", func(el *colly.HTMLElement) {
		if found != "" || !isContactLink(el.Text, el.Attr("href")) {
			return
		}
		// Revisit errors just mean the link was out of budget or scope.
		_ = el.Request.Visit(el.Attr("href"))
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(root.String())
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("email hunt canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil && found == "" {
			return "", fmt.Errorf("visit %s: %w", root.String(), err)
		}
	}
	return found, nil
}

func isContactLink(text, href string) bool {
	probe := strings.ToLower(text + " " + href)
	for _, anchor := range contactAnchors {
		if strings.Contains(probe, anchor) {
			return true
		}
	}
	return false
}

func hostVariants(host string) []string {
	host = strings.ToLower(host)
	if strings.HasPrefix(host, "www.") {
		return []string{host, strings.TrimPrefix(host, "www.")}
	}
	return []string{host, "www." + host}
}

func ensureScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func sanitizeEmail(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.ToLower(raw)
	if !emailPattern.MatchString(raw) {
		return ""
	}
	return raw
}
