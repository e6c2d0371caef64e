package mcp

import (
	"database/sql"
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"sidecar", "cdxj", "run"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"sidecar_classify": {
		def:     classifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClassify },
	},
	"sidecar_build_index": {
		def:     buildIndexToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBuildIndex },
	},
	"cdxj_merge": {
		def:     mergeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMerge },
	},
	"run_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"run_get": {
		def:     getRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetRun },
	},
}

// AllToolNames returns the names of every registered tool, sorted.
func AllToolNames() []string {
	return slices.Sorted(maps.Keys(toolRegistry))
}

// ValidateDisabledTools returns the names that match no tool.
func ValidateDisabledTools(names []string) []string {
	return unknownNames(names, func(n string) bool {
		_, ok := toolRegistry[n]
		return ok
	})
}

// ValidateDisabledTypes returns the names that match no entry in KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	return unknownNames(names, func(n string) bool {
		return slices.Contains(KnownTypes, n)
	})
}

func unknownNames(names []string, known func(string) bool) []string {
	var unknown []string
	for _, n := range names {
		if !known(n) {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

// GetTypeForTool returns the part of a tool name before the first
// underscore: "sidecar_build_index" belongs to "sidecar".
func GetTypeForTool(toolName string) string {
	typ, _, ok := strings.Cut(toolName, "_")
	if !ok {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns the tools belonging to any of types, sorted.
func ExpandTypesToTools(types []string) []string {
	var tools []string
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// disabledTools is the union of cfg.DisabledTools and the tools of
// cfg.DisabledTypes.
func disabledTools(cfg *config.Config) map[string]bool {
	off := make(map[string]bool)
	for _, name := range slices.Concat(cfg.DisabledTools, ExpandTypesToTools(cfg.DisabledTypes)) {
		off[name] = true
	}
	return off
}

// NewServer creates an MCP server exposing the sidecar operations.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are not registered.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"warc-metadata-sidecar",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)
	off := disabledTools(cfg)
	for _, name := range AllToolNames() {
		if off[name] {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}
