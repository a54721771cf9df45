package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/leadharvest/internal/harvest"
)

func sampleRecords() []harvest.Record {
	return []harvest.Record{
		{
			Name:        "Joe's Pizza",
			Address:     "123 Main St, Springfield",
			Phone:       "(555) 010-2002",
			Website:     "https://joespizza.example",
			Email:       "hello@joespizza.example",
			Rating:      "4.5",
			ReviewCount: "150 reviews",
			Source:      harvest.SourceGoogleMaps,
		},
		{
			Name:   "Luigi's Trattoria",
			Source: harvest.SourceYelp,
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("csv")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)
	require.Equal(t, "csv", f.Ext())

	f, err = ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

func TestExportCSVRoundTrip(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, New(nil).Export(sampleRecords(), FormatCSV, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, header, rows[0])
	// Comma-containing address survives quoting.
	require.Equal(t, "123 Main St, Springfield", rows[1][1])
	require.Equal(t, "google_maps", rows[1][7])
	require.Equal(t, "Luigi's Trattoria", rows[2][0])
	require.Empty(t, rows[2][1])
}

func TestExportJSONRoundTrip(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "leads.json")
	require.NoError(t, New(nil).Export(sampleRecords(), FormatJSON, dest))

	payload, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(payload), "\n"))

	var decoded []harvest.Record
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, sampleRecords(), decoded)
}

func TestExportEmptySet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	csvDest := filepath.Join(dir, "empty.csv")
	require.NoError(t, New(nil).Export(nil, FormatCSV, csvDest))
	payload, err := os.ReadFile(csvDest)
	require.NoError(t, err)
	require.Equal(t, strings.Join(header, ",")+"\n", string(payload))

	jsonDest := filepath.Join(dir, "empty.json")
	require.NoError(t, New(nil).Export(nil, FormatJSON, jsonDest))
	payload, err = os.ReadFile(jsonDest)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(payload))
}

func TestExportCreatesOutputDir(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "nested", "deeper", "leads.json")
	require.NoError(t, New(nil).Export(sampleRecords(), FormatJSON, dest))
	_, err := os.Stat(dest)
	require.NoError(t, err)
}

func TestExportFailureLeavesNoArtifacts(t *testing.T) {
	t.Parallel()

	// Parent "dir" is a regular file, so MkdirAll must fail and nothing
	// may be written.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	dest := filepath.Join(blocker, "leads.csv")
	require.Error(t, New(nil).Export(sampleRecords(), FormatCSV, dest))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "blocker", entries[0].Name())
}

func TestExportUnknownFormatRemovesTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "leads.xml")
	require.Error(t, New(nil).Export(sampleRecords(), Format("xml"), dest))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
