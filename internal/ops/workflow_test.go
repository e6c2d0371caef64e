package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/cdxj"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/detect"
)

// TestFullWorkflow runs the real detectors through the whole pipeline:
// classify → build-index → merge → history
func TestFullWorkflow(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	in := t.TempDir()
	out := t.TempDir()

	cfg := testConfig()
	cfg.DisabledDetectors = []string{detect.NameLanguage, detect.NameSoft404}

	page := "<html><head><title>Example</title></head><body><p>plain ascii page</p></body></html>"
	archive := writeArchive(t, in, "crawl.warc.gz", true,
		responseRecord("http://www.example.com/", "2009-11-11T21:21:21Z", "<urn:uuid:1>", 200, "text/html", page),
		responseRecord("http://www.example.com/pixel.png", "2009-11-11T21:21:22Z", "<urn:uuid:2>", 200, "image/png", pngBody),
	)

	// 1. Classify
	classified, err := Classify(ctx, database, cfg, ClassifyInput{Archives: []string{archive}, OutputDir: out})
	require.NoError(t, err)
	require.Len(t, classified.Items, 1)
	require.Equal(t, 2, classified.Items[0].Written)

	// 2. Build the metadata index
	indexed, err := BuildIndex(ctx, database, BuildIndexInput{Sidecar: classified.Items[0].Sidecar, OutputDir: out})
	require.NoError(t, err)
	require.Equal(t, 2, indexed.Lines)
	require.Equal(t, filepath.Join(out, "crawl.cdxj"), indexed.Index)

	// 3. Merge into an original index
	key := cdxj.Canonicalize("http://www.example.com/") + " 20091111212121"
	original := key + ` {"url": "http://www.example.com/", "mime": "text/html", "status": "200"}` + "\n" +
		`com,example)/missing 20091111212121 {"url": "http://www.example.com/missing"}` + "\n"
	origPath := filepath.Join(in, "crawl-original.cdxj")
	require.NoError(t, os.WriteFile(origPath, []byte(original), 0644))

	merged, err := Merge(ctx, database, cfg, MergeInput{MetadataIndex: indexed.Index, OriginalIndex: origPath, OutputDir: out})
	require.NoError(t, err)
	require.Equal(t, 1, merged.Edited)
	require.Equal(t, 1, merged.NonEdited)

	data, err := os.ReadFile(merged.Index)
	require.NoError(t, err)
	lines := strings.SplitAfter(string(data), "\n")
	require.Equal(t, key+` {"url": "http://www.example.com/", "mime": "text/html", "status": "200", "mime-detected": "text/html", "preservation-id": "fmt/96", "charset": "ascii"}`+"\n", lines[0])
	require.Equal(t, `com,example)/missing 20091111212121 {"url": "http://www.example.com/missing"}`+"\n", lines[1])

	// 4. Every run was journaled
	hist, err := History(database, HistoryInput{})
	require.NoError(t, err)
	require.Equal(t, 3, hist.Pagination.Total)
	require.Equal(t, OpMerge, hist.Items[0].Operation)
}
