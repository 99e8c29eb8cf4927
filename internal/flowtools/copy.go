package flowtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/query"
)

// CopyTool handles the flow_copy MCP tool.
type CopyTool struct {
	exec *query.Executor
}

// NewCopyTool creates a CopyTool.
func NewCopyTool(exec *query.Executor) *CopyTool {
	return &CopyTool{exec: exec}
}

// Definition returns the MCP tool definition for flow_copy.
func (t *CopyTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_copy",
		mcp.WithDescription(
			"Copy every flow matching a filter into a second database file. "+
				"The target is created if missing and ends up fully populated or untouched. "+
				"Use this to extract a shareable subset of a capture.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Destination database file path"),
		),
		mcp.WithString("filter",
			mcp.Description("Filter expression; empty copies all flows"),
		),
	)
}

// Handle processes the flow_copy tool call.
func (t *CopyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	filterText := req.GetString("filter", "")

	rows, err := t.exec.CopyTo(ctx, path, filterText)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("copy failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Copied %d chunk rows to %s.", rows, path)), nil
}
