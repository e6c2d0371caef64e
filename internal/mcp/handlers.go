package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// ClassifyRequest represents the arguments for sidecar_classify.
type ClassifyRequest struct {
	Archives  []string `json:"archives"`
	OutputDir string   `json:"output_dir"`
	Operator  string   `json:"operator,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Jobs      int      `json:"jobs,omitempty"`
}

// BuildIndexRequest represents the arguments for sidecar_build_index.
type BuildIndexRequest struct {
	Sidecar   string `json:"sidecar"`
	OutputDir string `json:"output_dir"`
}

// MergeRequest represents the arguments for cdxj_merge.
type MergeRequest struct {
	MetadataIndex string `json:"metadata_index"`
	OriginalIndex string `json:"original_index"`
	OutputDir     string `json:"output_dir"`
}

// HistoryRequest represents the arguments for run_history.
type HistoryRequest struct {
	Operation string `json:"operation,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// GetRunRequest represents the arguments for run_get.
type GetRunRequest struct {
	ID string `json:"id"`
}

// HandleClassify handles the sidecar_classify tool call.
func (h *Handlers) HandleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClassifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Classify(ctx, h.db, h.cfg, ops.ClassifyInput{
		Archives:  input.Archives,
		OutputDir: input.OutputDir,
		Operator:  input.Operator,
		Publisher: input.Publisher,
		Jobs:      input.Jobs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBuildIndex handles the sidecar_build_index tool call.
func (h *Handlers) HandleBuildIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildIndexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.BuildIndex(ctx, h.db, ops.BuildIndexInput{
		Sidecar:   input.Sidecar,
		OutputDir: input.OutputDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMerge handles the cdxj_merge tool call.
func (h *Handlers) HandleMerge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MergeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Merge(ctx, h.db, h.cfg, ops.MergeInput{
		MetadataIndex: input.MetadataIndex,
		OriginalIndex: input.OriginalIndex,
		OutputDir:     input.OutputDir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the run_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Operation: input.Operation,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGetRun handles the run_get tool call.
func (h *Handlers) HandleGetRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetRun(h.db, ops.GetRunInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.SidecarError
	if errors.As(err, &sErr) {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
		}
		// Internal errors may carry paths or SQL text.
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
