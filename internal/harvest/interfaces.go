package harvest

import "context"

// Pacer gates every externally observable action (navigation, scroll,
// per-listing extraction). Wait blocks the calling flow and returns an
// error only when the context ends first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Browser produces a navigable, scrollable results view for a query on
// one listing provider. Implementations own the underlying session
// resources; the harvester releases each view on every exit path.
type Browser interface {
	Open(ctx context.Context, src Source, keyword, location string) (ResultsView, error)
}

// ResultsView is one rendered search-results page.
type ResultsView interface {
	// Scroll reveals more listings; providers lazily render additional
	// results as the view scrolls.
	Scroll(ctx context.Context) error
	// Listings returns the outer HTML of each listing element currently
	// visible, in document order.
	Listings(ctx context.Context) ([]string, error)
	// Close releases the view and its session resources.
	Close(ctx context.Context) error
}
