package ops

import (
	"database/sql"
	"strings"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/db"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Operation string // optional: classify, build-index or merge
	Limit     int    // default: 20, max: 100
	Offset    int    // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.Run   `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// History lists journaled runs, newest first.
func History(database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	op := strings.TrimSpace(input.Operation)
	switch op {
	case "", OpClassify, OpBuildIndex, OpMerge:
	default:
		return nil, errors.NewInvalidRequest("operation must be one of: classify, build-index, merge")
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := max(input.Offset, 0)

	runs, total, err := db.ListRuns(database, db.RunFilter{Operation: op}, limit, offset)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []db.Run{}
	}

	return &HistoryOutput{
		Items: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
		Sort: "started_at_desc",
	}, nil
}

// GetRunInput contains parameters for the GetRun operation.
type GetRunInput struct {
	ID string
}

// GetRun returns one journaled run.
func GetRun(database *sql.DB, input GetRunInput) (*db.Run, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	return db.GetRun(database, id)
}
