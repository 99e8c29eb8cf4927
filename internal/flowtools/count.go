package flowtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/query"
)

// CountTool handles the flow_count MCP tool.
type CountTool struct {
	exec *query.Executor
}

// NewCountTool creates a CountTool.
func NewCountTool(exec *query.Executor) *CountTool {
	return &CountTool{exec: exec}
}

// Definition returns the MCP tool definition for flow_count.
func (t *CountTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_count",
		mcp.WithDescription(
			"Count captured flows matching a filter expression, ignoring paging. "+
				"An empty filter counts every flow.",
		),
		mcp.WithString("filter",
			mcp.Description("Filter expression; empty matches all flows"),
		),
	)
}

// Handle processes the flow_count tool call.
func (t *CountTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filterText := req.GetString("filter", "")

	n, err := t.exec.Count(ctx, filterText)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count failed: %v", err)), nil
	}

	if filterText == "" {
		return mcp.NewToolResultText(fmt.Sprintf("%d flows stored.", n)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d flows match the filter.", n)), nil
}
