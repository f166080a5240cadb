package mcp

import "github.com/mark3labs/mcp-go/mcp"

var addToolDef = mcp.NewTool("tally_add",
	mcp.WithDescription("Sum a delimited list of integers. Numbers are separated by commas or newlines; "+
		"a header \"//<char>\\n\" declares a single custom separator. Numbers above 1000 count as 0 and "+
		"negative numbers are rejected. Calculation failures are returned in the result's error field."),
	mcp.WithString("input", mcp.Required(), mcp.Description("Text to sum, e.g. \"1,2\\n3\" or \"//;\\n1;2\"")),
	mcp.WithBoolean("no_history", mcp.Description("Do not record this evaluation")),
)

var fetchToolDef = mcp.NewTool("tally_fetch",
	mcp.WithDescription("Fetch a recorded evaluation by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Evaluation ULID")),
)

var listToolDef = mcp.NewTool("tally_list",
	mcp.WithDescription("List recorded evaluations, newest first."),
	mcp.WithString("status", mcp.Description("Filter by outcome"), mcp.Enum("ok", "error")),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var latestToolDef = mcp.NewTool("tally_latest",
	mcp.WithDescription("Get the most recent recorded evaluation."),
	mcp.WithString("status", mcp.Description("Filter by outcome"), mcp.Enum("ok", "error")),
)

var purgeToolDef = mcp.NewTool("tally_purge",
	mcp.WithDescription("Permanently delete recorded evaluations."),
	mcp.WithNumber("older_than_days", mcp.Description("Only delete evaluations older than N days")),
	mcp.WithBoolean("failed_only", mcp.Description("Only delete evaluations that ended in an error")),
)
