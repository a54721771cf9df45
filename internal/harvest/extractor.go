package harvest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNameMissing indicates no strategy could resolve the listing name,
// the one required field.
var ErrNameMissing = errors.New("listing name could not be resolved")

// fieldStrategy attempts one lookup against a rendered listing element.
// It returns "" when the lookup fails; strategies never report errors.
type fieldStrategy func(*goquery.Selection) string

// strategySet holds the ordered fallback chains for every record field
// of one provider. The first strategy yielding a non-empty value wins.
type strategySet struct {
	name        []fieldStrategy
	address     []fieldStrategy
	phone       []fieldStrategy
	website     []fieldStrategy
	rating      []fieldStrategy
	reviewCount []fieldStrategy
}

var strategyTables = map[Source]strategySet{
	SourceGoogleMaps: {
		name: []fieldStrategy{
			attr("a[aria-label]", "aria-label"),
			text("div.qBF1Pd"),
			text("h1"),
			text("h3"),
		},
		address: []fieldStrategy{
			text("[data-item-id='address']"),
			labeledText("[aria-label*='Address']", "Address"),
		},
		phone: []fieldStrategy{
			text("[data-item-id*='phone']"),
			labeledText("[aria-label*='Phone']", "Phone"),
		},
		website: []fieldStrategy{
			attr("a[data-item-id='authority']", "href"),
			attr("a[aria-label*='Website']", "href"),
		},
		rating: []fieldStrategy{
			attrFirstWord("span[role='img']", "aria-label"),
			text("span.MW4etd"),
		},
		reviewCount: []fieldStrategy{
			text("span[aria-label*='review']"),
			text("button[aria-label*='review']"),
			text("span.UY7F9"),
		},
	},
	SourceYelp: {
		name: []fieldStrategy{
			text("[data-testid='business-name']"),
			text("h3 a"),
			attr("a[name]", "name"),
		},
		address: []fieldStrategy{
			text("[data-testid='business-address']"),
			text("address"),
		},
		phone: []fieldStrategy{
			text("[data-testid='business-phone-number']"),
			text("p.phone"),
		},
		website: []fieldStrategy{
			attr("a[aria-label='Business website']", "href"),
			attr("a[href*='biz_redir']", "href"),
		},
		rating: []fieldStrategy{
			attrFirstWord("[role='img']", "aria-label"),
			attr("div[data-testid='rating']", "aria-label"),
		},
		reviewCount: []fieldStrategy{
			text("[data-testid='review-count']"),
			text("span.reviewCount"),
		},
	},
}

// Extractor builds best-effort Records from rendered listing elements.
// It is a pure transformation: all navigation and network effects belong
// to the harvester.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses one listing element and resolves each field through the
// provider's fallback chain. Optional fields default to empty; a listing
// whose name cannot be resolved is rejected with ErrNameMissing.
func (e *Extractor) Extract(src Source, listingHTML string) (Record, error) {
	table, ok := strategyTables[src]
	if !ok {
		return Record{}, fmt.Errorf("no strategy table for source %q", src)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return Record{}, fmt.Errorf("parse listing element: %w", err)
	}
	sel := doc.Selection

	name := firstValue(sel, table.name)
	if name == "" {
		return Record{}, ErrNameMissing
	}

	return Record{
		Name:        name,
		Address:     firstValue(sel, table.address),
		Phone:       firstValue(sel, table.phone),
		Website:     firstValue(sel, table.website),
		Rating:      firstValue(sel, table.rating),
		ReviewCount: firstValue(sel, table.reviewCount),
		Source:      src,
	}, nil
}

// firstValue evaluates strategies in order and returns the first
// non-empty result. A panicking strategy counts as a failed lookup.
func firstValue(sel *goquery.Selection, strategies []fieldStrategy) string {
	for _, strategy := range strategies {
		if v := applyStrategy(sel, strategy); v != "" {
			return v
		}
	}
	return ""
}

func applyStrategy(sel *goquery.Selection, strategy fieldStrategy) (value string) {
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	return strings.TrimSpace(strategy(sel))
}

func text(selector string) fieldStrategy {
	return func(sel *goquery.Selection) string {
		return sel.Find(selector).First().Text()
	}
}

func attr(selector, name string) fieldStrategy {
	return func(sel *goquery.Selection) string {
		v, _ := sel.Find(selector).First().Attr(name)
		return v
	}
}

// labeledText reads element text but rejects values that merely echo the
// label the selector matched on (empty detail rows keep the aria label).
func labeledText(selector, label string) fieldStrategy {
	return func(sel *goquery.Selection) string {
		v := strings.TrimSpace(sel.Find(selector).First().Text())
		if strings.EqualFold(v, label) {
			return ""
		}
		return v
	}
}

// attrFirstWord returns the first whitespace-separated token of an
// attribute value, e.g. "4.5" out of "4.5 stars 150 Reviews".
func attrFirstWord(selector, name string) fieldStrategy {
	return func(sel *goquery.Selection) string {
		v, _ := sel.Find(selector).First().Attr(name)
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	}
}
