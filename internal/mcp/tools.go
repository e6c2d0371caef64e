package mcp

import "github.com/mark3labs/mcp-go/mcp"

var classifyToolDef = mcp.NewTool("sidecar_classify",
	mcp.WithDescription("Classify the payloads of one or more WARC/ARC archives and write a metadata sidecar WARC per archive."),
	mcp.WithArray("archives",
		mcp.Required(),
		mcp.Description("Paths of the .warc, .warc.gz, .arc or .arc.gz files to classify"),
		mcp.WithStringItems(),
	),
	mcp.WithString("output_dir",
		mcp.Required(),
		mcp.Description("Directory the sidecars and sidecar.log are written to"),
	),
	mcp.WithString("operator", mcp.Description("warcinfo operator field")),
	mcp.WithString("publisher", mcp.Description("warcinfo publisher field")),
	mcp.WithNumber("jobs", mcp.Description("Archives processed in parallel")),
)

var buildIndexToolDef = mcp.NewTool("sidecar_build_index",
	mcp.WithDescription("Build a CDXJ index of the metadata records in a sidecar."),
	mcp.WithString("sidecar",
		mcp.Required(),
		mcp.Description("Path of a .warc.meta or .warc.meta.gz file"),
	),
	mcp.WithString("output_dir",
		mcp.Required(),
		mcp.Description("Directory the index and cdxj.log are written to"),
	),
)

var mergeToolDef = mcp.NewTool("cdxj_merge",
	mcp.WithDescription("Merge a sidecar CDXJ index into an original CDXJ index, adding detected fields to matching lines."),
	mcp.WithString("metadata_index",
		mcp.Required(),
		mcp.Description("CDXJ index built from a sidecar"),
	),
	mcp.WithString("original_index",
		mcp.Required(),
		mcp.Description("CDXJ index of the original archive"),
	),
	mcp.WithString("output_dir",
		mcp.Required(),
		mcp.Description("Directory the merged index and cdxj_merge.log are written to"),
	),
)

var historyToolDef = mcp.NewTool("run_history",
	mcp.WithDescription("List journaled runs, newest first."),
	mcp.WithString("operation",
		mcp.Description("Filter by operation"),
		mcp.Enum("classify", "build-index", "merge"),
	),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var getRunToolDef = mcp.NewTool("run_get",
	mcp.WithDescription("Fetch one journaled run by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Run ID")),
)
