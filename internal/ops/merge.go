package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/cdxj"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// MergeInput contains parameters for the Merge operation.
type MergeInput struct {
	MetadataIndex string `json:"metadata_index"`
	OriginalIndex string `json:"original_index"`
	OutputDir     string `json:"output_dir"`
}

// MergeOutput contains the result of the Merge operation.
type MergeOutput struct {
	Index      string `json:"index"`
	Edited     int    `json:"edited"`
	NonEdited  int    `json:"non_edited"`
	DurationMS int64  `json:"duration_ms"`
	RunID      string `json:"run_id,omitempty"`
}

// Merge folds the classifier fields of a metadata index into a copy of an
// original index.
func Merge(ctx context.Context, database *sql.DB, cfg *config.Config, input MergeInput) (*MergeOutput, error) {
	started := time.Now()
	if err := ValidateInputFile(input.MetadataIndex); err != nil {
		return nil, err
	}
	if err := ValidateInputFile(input.OriginalIndex); err != nil {
		return nil, err
	}
	name, err := MergedName(input.OriginalIndex)
	if err != nil {
		return nil, err
	}
	if err := PrepareOutputDir(input.OutputDir); err != nil {
		return nil, err
	}
	outPath := filepath.Join(input.OutputDir, name)
	if sameFile(outPath, input.MetadataIndex) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("merged index %s would overwrite the metadata index", outPath))
	}

	logger, closeLog, err := openLog(input.OutputDir, MergeLogName, "cdxj_merge")
	if err != nil {
		return nil, err
	}
	defer closeLog()
	logger.Info("logging CDXJ merge information", "original", input.OriginalIndex, "metadata", input.MetadataIndex)
	logger.Info("creating CDXJ", "index", name)

	counts, err := mergeFiles(ctx, cfg, input, outPath)

	run := &runRecord{
		op: OpMerge, inputs: input, started: started, output: outPath,
		total: counts.Edited + counts.NonEdited, written: counts.Edited, skipped: counts.NonEdited,
	}
	runID := run.finish(database, logger, err)
	if err != nil {
		logger.Error("merge failed", "err", err)
		return nil, err
	}

	elapsed := time.Since(started)
	logger.Info("finished merge", "elapsed", elapsed.Round(time.Millisecond))
	logger.Info("total edited records", "edited", counts.Edited, "non_edited", counts.NonEdited)
	return &MergeOutput{
		Index:      outPath,
		Edited:     counts.Edited,
		NonEdited:  counts.NonEdited,
		DurationMS: elapsed.Milliseconds(),
		RunID:      runID,
	}, nil
}

func mergeFiles(ctx context.Context, cfg *config.Config, input MergeInput, outPath string) (cdxj.Counts, error) {
	meta, err := os.Open(input.MetadataIndex)
	if err != nil {
		return cdxj.Counts{}, errors.NewIO(input.MetadataIndex, err)
	}
	defer meta.Close()

	table, err := cdxj.LoadTable(ctx, meta, filepath.Base(input.MetadataIndex), cfg.MimePreference)
	if err != nil {
		return cdxj.Counts{}, err
	}

	orig, err := os.Open(input.OriginalIndex)
	if err != nil {
		return cdxj.Counts{}, errors.NewIO(input.OriginalIndex, err)
	}
	defer orig.Close()

	out, err := createOutput(outPath)
	if err != nil {
		return cdxj.Counts{}, err
	}
	defer out.Close()

	counts, err := cdxj.Merge(ctx, table, orig, filepath.Base(input.OriginalIndex), out)
	if err != nil {
		return counts, err
	}
	if err := out.Commit(); err != nil {
		return counts, err
	}
	return counts, nil
}
