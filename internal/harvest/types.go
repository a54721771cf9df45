// Package harvest defines the core types and the extraction pipeline for
// business listing harvesting.
package harvest

import (
	"fmt"
	"strings"
)

// Source identifies a supported listing provider.
type Source string

// Supported listing providers.
const (
	SourceGoogleMaps Source = "google_maps"
	SourceYelp       Source = "yelp"
	SourceBoth       Source = "both"
)

// ParseSource converts user input into a Source.
func ParseSource(raw string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "google", "google_maps", "google-maps", "maps":
		return SourceGoogleMaps, nil
	case "yelp":
		return SourceYelp, nil
	case "both", "all":
		return SourceBoth, nil
	default:
		return "", fmt.Errorf("unknown source %q", raw)
	}
}

// Record holds one harvested business listing. Records are value types:
// once built by the extractor they are never mutated; corrections produce
// a new Record.
type Record struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Email       string `json:"email"`
	Rating      string `json:"rating"`
	ReviewCount string `json:"review_count"`
	Source      Source `json:"source"`
}

// Key returns the identity used for deduplication: the case-folded,
// whitespace-collapsed (name, address) pair. Records with an empty name
// have no identity and return "".
func (r Record) Key() string {
	name := normalizeKeyPart(r.Name)
	if name == "" {
		return ""
	}
	return name + "|" + normalizeKeyPart(r.Address)
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Query describes one harvest request.
type Query struct {
	Keyword    string
	Location   string
	MaxResults int
	Source     Source
}

// Validate checks the query before a run starts. Keyword/location presence
// is the caller's concern; the pipeline only needs a usable bound.
func (q Query) Validate() error {
	if q.MaxResults <= 0 {
		return fmt.Errorf("max results must be > 0, got %d", q.MaxResults)
	}
	switch q.Source {
	case SourceGoogleMaps, SourceYelp, SourceBoth:
		return nil
	default:
		return fmt.Errorf("unknown source %q", q.Source)
	}
}

// Sources expands SourceBoth into the concrete providers, in the order
// runs are merged.
func (q Query) Sources() []Source {
	if q.Source == SourceBoth {
		return []Source{SourceGoogleMaps, SourceYelp}
	}
	return []Source{q.Source}
}

// RunState is the lifecycle state of a harvest run.
type RunState string

// Run states. Errored is absorbing; Done is terminal.
const (
	StateIdle       RunState = "idle"
	StateLoading    RunState = "loading"
	StateScrolling  RunState = "scrolling"
	StateExtracting RunState = "extracting"
	StateDone       RunState = "done"
	StateErrored    RunState = "errored"
)
