package ops

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/archive"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/cdxj"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/metadata"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

// BuildIndexInput contains parameters for the BuildIndex operation.
type BuildIndexInput struct {
	Sidecar   string `json:"sidecar"`
	OutputDir string `json:"output_dir"`
}

// BuildIndexOutput contains the result of the BuildIndex operation.
type BuildIndexOutput struct {
	Index      string `json:"index"`
	Lines      int    `json:"lines"`
	DurationMS int64  `json:"duration_ms"`
	RunID      string `json:"run_id,omitempty"`
}

// BuildIndex writes a CDXJ index with one line per metadata record of a
// sidecar. The warcinfo record is skipped.
func BuildIndex(ctx context.Context, database *sql.DB, input BuildIndexInput) (*BuildIndexOutput, error) {
	started := time.Now()
	if err := ValidateInputFile(input.Sidecar); err != nil {
		return nil, err
	}
	name, err := IndexName(input.Sidecar)
	if err != nil {
		return nil, err
	}
	if err := PrepareOutputDir(input.OutputDir); err != nil {
		return nil, err
	}

	logger, closeLog, err := openLog(input.OutputDir, BuildIndexLogName, "cdxj")
	if err != nil {
		return nil, err
	}
	defer closeLog()
	logger.Info("creating index", "sidecar", input.Sidecar, "index", name)

	outPath := filepath.Join(input.OutputDir, name)
	lines, err := writeIndex(ctx, input.Sidecar, outPath)

	run := &runRecord{op: OpBuildIndex, inputs: input, started: started, output: outPath, total: lines, written: lines}
	runID := run.finish(database, logger, err)
	if err != nil {
		logger.Error("index failed", "sidecar", input.Sidecar, "err", err)
		return nil, err
	}

	elapsed := time.Since(started)
	logger.Info("finished index", "index", name, "lines", lines, "elapsed", elapsed.Round(time.Millisecond))
	return &BuildIndexOutput{
		Index:      outPath,
		Lines:      lines,
		DurationMS: elapsed.Milliseconds(),
		RunID:      runID,
	}, nil
}

func writeIndex(ctx context.Context, sidecar, outPath string) (int, error) {
	src, err := archive.Open(sidecar)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := createOutput(outPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	lines := 0
	for {
		if ctx.Err() != nil {
			return 0, errors.NewCancelled("build-index " + sidecar)
		}
		capture, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if capture.Type != warc.TypeMetadata {
			continue
		}

		line, err := IndexLine(capture)
		if err != nil {
			return 0, errors.NewFormat(sidecar, -1, err.Error())
		}
		if _, err := bw.Write(line); err != nil {
			return 0, errors.NewIO(outPath, err)
		}
		lines++
	}
	if err := bw.Flush(); err != nil {
		return 0, errors.NewIO(outPath, err)
	}
	if err := out.Commit(); err != nil {
		return 0, err
	}
	return lines, nil
}

// IndexLine renders the CDXJ line for one sidecar metadata record.
func IndexLine(c *archive.Capture) ([]byte, error) {
	fields, err := metadata.ParseFields(string(c.Payload))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", c.URL, err)
	}
	ts, err := cdxj.Timestamp(c.Date)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", c.URL, err)
	}
	return cdxj.FormatLine(cdxj.Canonicalize(c.URL), ts, fields)
}
