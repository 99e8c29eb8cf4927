package flowtools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"flowvault/internal/codec"
	"flowvault/internal/flow"
	"flowvault/internal/query"
)

// GetTool handles the flow_get MCP tool.
type GetTool struct {
	exec *query.Executor
}

// NewGetTool creates a GetTool.
func NewGetTool(exec *query.Executor) *GetTool {
	return &GetTool{exec: exec}
}

// Definition returns the MCP tool definition for flow_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("flow_get",
		mcp.WithDescription(
			"Fetch one captured flow by id and render its request, response and "+
				"connection metadata. Message bodies are summarized by size, not dumped.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Flow id as returned by flow_query"),
		),
	)
}

// Handle processes the flow_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	f, err := t.exec.Get(ctx, id)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			return mcp.NewToolResultError(fmt.Sprintf("flow %s is not readable: %v", id, err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("get failed: %v", err)), nil
	}

	return mcp.NewToolResultText(renderFlow(f)), nil
}

func renderFlow(f *flow.Flow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Flow %s (%s)\n", f.ID, f.Kind)
	if f.Marked != "" {
		fmt.Fprintf(&b, "Marker: %s\n", f.Marked)
	}
	if f.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", f.Comment)
	}

	if r := f.Request; r != nil {
		fmt.Fprintf(&b, "\nRequest: %s %s %s\n", r.Method, r.URL(), r.HTTPVersion)
		writeHeaders(&b, r.Headers)
		fmt.Fprintf(&b, "  body: %d bytes\n", len(r.Content))
	}

	if r := f.Response; r != nil {
		fmt.Fprintf(&b, "\nResponse: %d %s %s\n", r.StatusCode, r.Reason, r.HTTPVersion)
		writeHeaders(&b, r.Headers)
		fmt.Fprintf(&b, "  body: %d bytes\n", len(r.Content))
	} else {
		fmt.Fprintf(&b, "\nResponse: none yet\n")
	}

	if c := f.Client; c != nil && c.Peername != nil {
		fmt.Fprintf(&b, "\nClient: %s (tls: %v)\n", c.Peername, c.TLSEstablished)
	}
	if s := f.Server; s != nil && s.Address != nil {
		fmt.Fprintf(&b, "Server: %s (tls: %v)\n", s.Address, s.TLSEstablished)
	}

	return b.String()
}

func writeHeaders(b *strings.Builder, hs flow.Headers) {
	for _, h := range hs {
		fmt.Fprintf(b, "  %s: %s\n", h.Name, h.Value)
	}
}
