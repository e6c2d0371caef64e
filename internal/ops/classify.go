package ops

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/archive"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/classify"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/detect"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

// ConformsTo is the warcinfo conformsTo value (WARC 1.1).
const ConformsTo = "https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/"

// ClassifyInput contains parameters for the Classify operation.
type ClassifyInput struct {
	Archives  []string `json:"archives"`
	OutputDir string   `json:"output_dir"`
	Operator  string   `json:"operator,omitempty"`  // default: config operator
	Publisher string   `json:"publisher,omitempty"` // default: config publisher
	Jobs      int      `json:"jobs,omitempty"`      // default: config jobs

	// Detectors builds the detector set for one archive. Default: detect.NewSet(cfg).
	Detectors func() detect.Set `json:"-"`
}

// ClassifyOutput contains the result of the Classify operation.
type ClassifyOutput struct {
	Items []SidecarResult `json:"items"`
	RunID string          `json:"run_id,omitempty"`
}

// SidecarResult describes one sidecar written by Classify.
type SidecarResult struct {
	Archive        string `json:"archive"`
	Sidecar        string `json:"sidecar"`
	TotalRecords   int    `json:"total_records"`
	Written        int    `json:"written"`
	TextMime       int    `json:"text_mime"`
	NonTextMime    int    `json:"non_text_mime"`
	Skipped        int    `json:"skipped"`
	CacheHits      int    `json:"cache_hits"`
	DetectorErrors int    `json:"detector_errors"`
	DurationMS     int64  `json:"duration_ms"`
}

// Classify writes a metadata sidecar for each archive into the output
// directory. Archives are processed concurrently, up to Jobs at a time, each
// with its own digest cache; the first failure cancels the rest.
func Classify(ctx context.Context, database *sql.DB, cfg *config.Config, input ClassifyInput) (*ClassifyOutput, error) {
	started := time.Now()
	if len(input.Archives) == 0 {
		return nil, errors.NewInvalidRequest("at least one archive is required")
	}
	if len(input.Archives) > MaxClassifyArchives {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d archives per run", MaxClassifyArchives))
	}
	names := make(map[string]string, len(input.Archives))
	for _, a := range input.Archives {
		if err := ValidateInputFile(a); err != nil {
			return nil, err
		}
		name, err := SidecarName(a, cfg.GzipEnabled())
		if err != nil {
			return nil, err
		}
		if prev, ok := names[name]; ok {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("%s and %s would both write %s", prev, a, name))
		}
		names[name] = a
	}
	if err := PrepareOutputDir(input.OutputDir); err != nil {
		return nil, err
	}

	logger, closeLog, err := openLog(input.OutputDir, ClassifyLogName, "sidecar")
	if err != nil {
		return nil, err
	}
	defer closeLog()

	jobs := input.Jobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}
	if jobs <= 0 {
		jobs = 1
	}
	newSet := input.Detectors
	if newSet == nil {
		newSet = func() detect.Set { return detect.NewSet(cfg) }
	}

	items := make([]SidecarResult, len(input.Archives))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range input.Archives {
		g.Go(func() error {
			res, err := writeSidecar(gctx, cfg, newSet(), path, input, logger)
			if err != nil {
				logger.Error("sidecar failed", "archive", path, "err", err)
				return err
			}
			items[i] = *res
			return nil
		})
	}
	err = g.Wait()

	run := &runRecord{op: OpClassify, inputs: input, started: started, output: input.OutputDir}
	for _, it := range items {
		run.total += it.TotalRecords
		run.written += it.Written
		run.skipped += it.Skipped
		run.hits += it.CacheHits
	}
	runID := run.finish(database, logger, err)
	if err != nil {
		return nil, err
	}
	return &ClassifyOutput{Items: items, RunID: runID}, nil
}

// writeSidecar classifies one archive into its sidecar file.
func writeSidecar(ctx context.Context, cfg *config.Config, det detect.Set, path string, input ClassifyInput, logger *log.Logger) (*SidecarResult, error) {
	start := time.Now()
	logger.Info("logging WARC metadata record information", "archive", path)

	gzip := cfg.GzipEnabled()
	name, err := SidecarName(path, gzip)
	if err != nil {
		return nil, err
	}
	outPath := filepath.Join(input.OutputDir, name)
	if sameFile(outPath, path) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("sidecar %s would overwrite its archive", outPath))
	}
	logger.Info("creating sidecar", "sidecar", name)

	src, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := createOutput(outPath)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	info := warcinfoFields(filepath.Base(path), firstNonEmpty(input.Operator, cfg.Operator), firstNonEmpty(input.Publisher, cfg.Publisher))
	w := warc.NewWriter(out, gzip)
	if err := w.WriteRecord(warc.NewWarcinfoRecord(name, info)); err != nil {
		return nil, errors.NewIO(outPath, err)
	}

	c := classify.New(det, classify.NewMemoryCache(),
		classify.WithLogger(logger.With("archive", filepath.Base(path))),
		classify.WithMaxPayloadBytes(cfg.MaxPayloadBytes))

	res := &SidecarResult{Archive: path, Sidecar: outPath}
	for {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("classify " + path)
		}
		capture, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.TotalRecords++

		result, ok := c.Classify(capture)
		if !ok {
			continue
		}
		var extra warc.Header
		if !capture.Legacy {
			if capture.RecordID != "" {
				extra.Add(warc.HeaderConcurrentTo, capture.RecordID)
			}
			if capture.WarcinfoID != "" {
				extra.Add(warc.HeaderWarcinfoID, capture.WarcinfoID)
			}
		}
		rec := warc.NewMetadataRecord(capture.URL, capture.Date, []byte(result.Text), extra)
		if err := w.WriteRecord(rec); err != nil {
			return nil, errors.NewIO(outPath, err)
		}
		res.Written++
	}

	if res.Written == 0 {
		logger.Info("no metadata records to write, updating warcinfo", "sidecar", name)
		if err := out.Reset(); err != nil {
			return nil, err
		}
		desc := info.Get("description") + "; 0 metadata sidecar records"
		info.Set("description", desc)
		if err := warc.NewWriter(out, gzip).WriteRecord(warc.NewWarcinfoRecord(name, info)); err != nil {
			return nil, errors.NewIO(outPath, err)
		}
	}
	if err := out.Commit(); err != nil {
		return nil, err
	}

	stats := c.Stats()
	res.TextMime = stats.Textual
	res.NonTextMime = stats.NonTextual
	res.Skipped = stats.Skipped
	res.CacheHits = stats.CacheHits
	res.DetectorErrors = stats.DetectorErrors
	res.DurationMS = time.Since(start).Milliseconds()

	logger.Info("finished sidecar", "sidecar", name, "elapsed", time.Since(start).Round(time.Millisecond))
	logger.Info("determined sidecar information", "records", res.Written, "mime_records", res.TextMime+res.NonTextMime)
	logger.Info("total records for this archive", "total", res.TotalRecords)
	return res, nil
}

// warcinfoFields builds the body of a sidecar's warcinfo record.
func warcinfoFields(archiveName, operator, publisher string) warc.Header {
	hostname, ip := hostIdentity()
	return warc.Header{
		{Name: "software", Value: "warc-metadata-sidecar/" + Version},
		{Name: "hostname", Value: hostname},
		{Name: "ip", Value: ip},
		{Name: "conformsTo", Value: ConformsTo},
		{Name: "description", Value: "WARC metadata sidecar for " + archiveName},
		{Name: "publisher", Value: publisher},
		{Name: "operator", Value: operator},
	}
}

var (
	hostOnce         sync.Once
	hostName, hostIP string
)

// hostIdentity returns the host name and its first resolved address. Either
// may be empty.
func hostIdentity() (string, string) {
	hostOnce.Do(func() {
		hostName, _ = os.Hostname()
		if hostName == "" {
			return
		}
		if addrs, err := net.LookupHost(hostName); err == nil && len(addrs) > 0 {
			hostIP = addrs[0]
		}
	})
	return hostName, hostIP
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
