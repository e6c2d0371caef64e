package ops

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/db"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// Operation names, as recorded in the run journal.
const (
	OpClassify   = "classify"
	OpBuildIndex = "build-index"
	OpMerge      = "merge"
)

// Log files, appended to in the output directory.
const (
	ClassifyLogName   = "sidecar.log"
	BuildIndexLogName = "cdxj.log"
	MergeLogName      = "cdxj_merge.log"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	MaxClassifyArchives = 256
)

// Version is the software version written into sidecar warcinfo records.
// The binary overrides it at startup.
var Version = "dev"

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// openLog opens name in dir for appending and returns a logger on it.
func openLog(dir, name, prefix string) (*log.Logger, func(), error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.NewIO(path, err)
	}
	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
		Level:           log.InfoLevel,
	})
	return logger, func() { f.Close() }, nil
}

// newRunID returns a time-ordered run identifier.
func newRunID() string {
	return ulid.Make().String()
}

// runRecord accumulates what the journal stores about one operation.
type runRecord struct {
	op      string
	inputs  any
	started time.Time
	output  string
	total   int
	written int
	skipped int
	hits    int
}

// finish writes the run to the journal. A nil database disables journaling.
// Journal failures are logged and never fail the operation itself.
func (r *runRecord) finish(database *sql.DB, logger *log.Logger, opErr error) string {
	if database == nil {
		return ""
	}
	inputs, err := json.Marshal(r.inputs)
	if err != nil {
		inputs = []byte("{}")
	}
	run := &db.Run{
		ID:         newRunID(),
		Operation:  r.op,
		InputsJSON: string(inputs),
		OutputPath: r.output,
		Status:     db.StatusOK,
		Total:      r.total,
		Written:    r.written,
		Skipped:    r.skipped,
		CacheHits:  r.hits,
		StartedAt:  r.started.Unix(),
		FinishedAt: time.Now().Unix(),
	}
	if opErr != nil {
		run.Status = db.StatusFailed
		run.Error = opErr.Error()
	}
	if err := db.InsertRun(database, run); err != nil {
		if logger != nil {
			logger.Warn("journal run", "op", r.op, "err", err)
		}
		return ""
	}
	return run.ID
}
