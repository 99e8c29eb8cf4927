// Package flowtools provides the MCP tool handlers for querying the flow
// store.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies (query.Executor) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools are read-mostly: the capture side writes flows, tools query them.
// flow_copy is the one tool that creates files (a filtered database copy).
package flowtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/query"
)

// numArg reads an integer argument, falling back when the key is absent or
// not a number. JSON numbers decode as float64.
func numArg(req mcp.CallToolRequest, key string, fallback int) int {
	if v, ok := req.GetArguments()[key].(float64); ok {
		return int(v)
	}
	return fallback
}

// flagArg reads an optional boolean argument, absent meaning false.
func flagArg(req mcp.CallToolRequest, key string) bool {
	v, _ := req.GetArguments()[key].(bool)
	return v
}

// QueryTool handles the flow_query MCP tool.
type QueryTool struct {
	exec         *query.Executor
	defaultLimit int
	maxLimit     int
}

// NewQueryTool creates a QueryTool. defaultLimit is the page size used when
// the caller passes none; maxLimit caps what a caller may request.
func NewQueryTool(exec *query.Executor, defaultLimit, maxLimit int) *QueryTool {
	return &QueryTool{exec: exec, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Definition returns the MCP tool definition for flow_query.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_query",
		mcp.WithDescription(
			"List captured flow ids matching a filter expression. Filters use ~flag atoms "+
				"(e.g. ~u pattern, ~c 404, ~marked) combined with !, & and |; a bare word "+
				"matches against the URL. An empty filter matches every flow.",
		),
		mcp.WithString("filter",
			mcp.Description("Filter expression; empty matches all flows"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort key: time (default), url, method, status, size"),
		),
		mcp.WithBoolean("desc",
			mcp.Description("Sort descending (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results per page"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of results to skip (default: 0)"),
		),
	)
}

// Handle processes the flow_query tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filterText := req.GetString("filter", "")
	sortKey := req.GetString("sort", "time")
	desc := flagArg(req, "desc")
	limit := numArg(req, "limit", t.defaultLimit)
	offset := numArg(req, "offset", 0)

	if limit > t.maxLimit {
		limit = t.maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	ids, err := t.exec.Flows(ctx, filterText, sortKey, desc, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	total, err := t.exec.Count(ctx, filterText)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count failed: %v", err)), nil
	}

	if len(ids) == 0 {
		return mcp.NewToolResultText("No flows match the filter."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d flows (offset %d):\n\n", len(ids), total, offset)
	for i, id := range ids {
		fmt.Fprintf(&b, "[%d] %s\n", offset+i+1, id)
	}
	return mcp.NewToolResultText(b.String()), nil
}
