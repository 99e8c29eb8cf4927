package flowtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/store"
)

// DeleteTool handles the flow_delete MCP tool.
type DeleteTool struct {
	store *store.Store
}

// NewDeleteTool creates a DeleteTool.
func NewDeleteTool(st *store.Store) *DeleteTool {
	return &DeleteTool{store: st}
}

// Definition returns the MCP tool definition for flow_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_delete",
		mcp.WithDescription(
			"Delete one captured flow and all of its chunks by id. "+
				"Pass all=true instead of an id to remove every stored flow.",
		),
		mcp.WithString("id",
			mcp.Description("Flow id to delete"),
		),
		mcp.WithBoolean("all",
			mcp.Description("Delete every flow (ignores id)"),
		),
	)
}

// Handle processes the flow_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if flagArg(req, "all") {
		if err := t.store.Truncate(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("truncate failed: %v", err)), nil
		}
		return mcp.NewToolResultText("All flows deleted."), nil
	}

	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required unless all=true"), nil
	}
	if err := t.store.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Flow %s deleted.", id)), nil
}
