package flowtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/store"
)

// StatsTool handles the flow_stats MCP tool.
type StatsTool struct {
	store *store.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(st *store.Store) *StatsTool {
	return &StatsTool{store: st}
}

// Definition returns the MCP tool definition for flow_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_stats",
		mcp.WithDescription(
			"Report store statistics: flow count, chunk count and total stored bytes.",
		),
	)
}

// Handle processes the flow_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Flows: %d\nChunks: %d\nTotal bytes: %d\n",
		st.Flows, st.Chunks, st.TotalBytes,
	)), nil
}
