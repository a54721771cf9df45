package harvest

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const googleCardFull = `
<div data-result-index="3">
  <a aria-label="Joe's Pizza" href="/maps/place/joes"></a>
  <div data-item-id="address">123 Main St, Springfield</div>
  <div data-item-id="phone:tel:5550102002">(555) 010-2002</div>
  <a data-item-id="authority" href="https://joespizza.example">joespizza.example</a>
  <span role="img" aria-label="4.5 stars 150 Reviews"></span>
  <span aria-label="150 reviews">150 reviews</span>
</div>`

const yelpCardFull = `
<div data-testid="serp-ia-card">
  <h3><a data-testid="business-name" href="/biz/joes">Joe's Pizza</a></h3>
  <address data-testid="business-address">123 Main St, Springfield</address>
  <p data-testid="business-phone-number">(555) 010-2002</p>
  <div role="img" aria-label="4.0 star rating"></div>
  <span data-testid="review-count">88 reviews</span>
  <a aria-label="Business website" href="https://joespizza.example">joespizza.example</a>
</div>`

func TestExtractGoogleMapsCard(t *testing.T) {
	t.Parallel()

	rec, err := NewExtractor().Extract(SourceGoogleMaps, googleCardFull)
	require.NoError(t, err)
	require.Equal(t, Record{
		Name:        "Joe's Pizza",
		Address:     "123 Main St, Springfield",
		Phone:       "(555) 010-2002",
		Website:     "https://joespizza.example",
		Rating:      "4.5",
		ReviewCount: "150 reviews",
		Source:      SourceGoogleMaps,
	}, rec)
}

func TestExtractYelpCard(t *testing.T) {
	t.Parallel()

	rec, err := NewExtractor().Extract(SourceYelp, yelpCardFull)
	require.NoError(t, err)
	require.Equal(t, Record{
		Name:        "Joe's Pizza",
		Address:     "123 Main St, Springfield",
		Phone:       "(555) 010-2002",
		Website:     "https://joespizza.example",
		Rating:      "4.0",
		ReviewCount: "88 reviews",
		Source:      SourceYelp,
	}, rec)
}

func TestExtractNameFallbackChain(t *testing.T) {
	t.Parallel()

	// No aria-label link; the secondary class-based selector resolves.
	card := `<div data-result-index="1"><div class="qBF1Pd">Luigi's Trattoria</div></div>`
	rec, err := NewExtractor().Extract(SourceGoogleMaps, card)
	require.NoError(t, err)
	require.Equal(t, "Luigi's Trattoria", rec.Name)
}

func TestExtractMissingOptionalsDefaultEmpty(t *testing.T) {
	t.Parallel()

	card := `<div data-result-index="1"><a aria-label="Bare Minimum Cafe" href="#"></a></div>`
	rec, err := NewExtractor().Extract(SourceGoogleMaps, card)
	require.NoError(t, err)
	require.Equal(t, "Bare Minimum Cafe", rec.Name)
	require.Empty(t, rec.Address)
	require.Empty(t, rec.Phone)
	require.Empty(t, rec.Website)
	require.Empty(t, rec.Email)
	require.Empty(t, rec.Rating)
	require.Empty(t, rec.ReviewCount)
}

func TestExtractMissingNameRejectsListing(t *testing.T) {
	t.Parallel()

	card := `<div data-result-index="1"><div data-item-id="address">123 Main St</div></div>`
	_, err := NewExtractor().Extract(SourceGoogleMaps, card)
	require.ErrorIs(t, err, ErrNameMissing)
}

func TestExtractUnknownSource(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().Extract(Source("bing"), "<div></div>")
	require.Error(t, err)
}

func TestExtractAddressLabelEchoRejected(t *testing.T) {
	t.Parallel()

	// An empty detail row keeps only the aria label text; that must not
	// surface as the address value.
	card := `<div data-result-index="1">
	  <a aria-label="Echo Cafe" href="#"></a>
	  <button aria-label="Address">Address</button>
	</div>`
	rec, err := NewExtractor().Extract(SourceGoogleMaps, card)
	require.NoError(t, err)
	require.Empty(t, rec.Address)
}

func TestFirstValueRecoversPanickingStrategy(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div></div>"))
	require.NoError(t, err)

	boom := func(*goquery.Selection) string { panic("selector blew up") }
	fallback := func(*goquery.Selection) string { return "recovered" }
	require.Equal(t, "recovered", firstValue(doc.Selection, []fieldStrategy{boom, fallback}))
}
