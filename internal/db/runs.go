package db

import (
	"database/sql"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one journaled operation.
type Run struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	InputsJSON string `json:"inputs"`
	OutputPath string `json:"output_path,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Total      int    `json:"total"`
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	CacheHits  int    `json:"cache_hits"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Operation string // empty = all
}

// InsertRun records a finished run.
func InsertRun(db *sql.DB, r *Run) error {
	query := `
		INSERT INTO runs (
			id, operation, inputs_json, output_path, status, error,
			total, written, skipped, cache_hits, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query,
		r.ID, r.Operation, r.InputsJSON, toNullString(r.OutputPath), r.Status, toNullString(r.Error),
		r.Total, r.Written, r.Skipped, r.CacheHits, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves a run by its ULID.
func GetRun(db *sql.DB, id string) (*Run, error) {
	query := `
		SELECT id, operation, inputs_json, output_path, status, error,
			total, written, skipped, cache_hits, started_at, finished_at
		FROM runs
		WHERE id = ?
	`
	r, err := scanRun(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewInvalidRequest("run not found: " + id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns runs newest first, plus the total count matching the filter.
func ListRuns(db *sql.DB, filter RunFilter, limit, offset int) ([]Run, int, error) {
	where := ""
	args := []any{}
	if filter.Operation != "" {
		where = " WHERE operation = ?"
		args = append(args, filter.Operation)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, operation, inputs_json, output_path, status, error,
			total, written, skipped, cache_hits, started_at, finished_at
		FROM runs` + where + `
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return runs, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var outputPath, errText sql.NullString
	err := s.Scan(
		&r.ID, &r.Operation, &r.InputsJSON, &outputPath, &r.Status, &errText,
		&r.Total, &r.Written, &r.Skipped, &r.CacheHits, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	r.OutputPath = outputPath.String
	r.Error = errText.String
	return &r, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
