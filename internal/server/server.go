// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the store, creates the query
// executor and injects them into the tools that depend on them. No business
// logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"flowvault/internal/config"
	"flowvault/internal/flowtools"
	"flowvault/internal/logging"
	"flowvault/internal/query"
	"flowvault/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all flow tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the store's database connection and
// must be called on shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	logger = logging.Default(logger)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("creating database directory: %w", err)
		}
	}

	st, err := store.Open(cfg.Database.Path, store.Options{
		JournalMode:   cfg.Database.JournalMode,
		Synchronous:   cfg.Database.Synchronous,
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
	}, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("opening flow store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}

	exec := query.New(st, logger)

	s := server.NewMCPServer(
		"flowvault",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	queryTool := flowtools.NewQueryTool(exec, cfg.Query.DefaultLimit, cfg.Query.MaxLimit)
	s.AddTool(queryTool.Definition(), queryTool.Handle)

	countTool := flowtools.NewCountTool(exec)
	s.AddTool(countTool.Definition(), countTool.Handle)

	getTool := flowtools.NewGetTool(exec)
	s.AddTool(getTool.Definition(), getTool.Handle)

	copyTool := flowtools.NewCopyTool(exec)
	s.AddTool(copyTool.Definition(), copyTool.Handle)

	deleteTool := flowtools.NewDeleteTool(st)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	statsTool := flowtools.NewStatsTool(st)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when initialization fails before the store
// has been opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI how to
// query the flow store effectively.
func serverInstructions() string {
	return `You have access to flowvault, a store of captured HTTP flows.

## Tools
- flow_query: list flow ids matching a filter, sorted and paged
- flow_count: count flows matching a filter
- flow_get: render one flow (request, response, connections)
- flow_copy: copy matching flows into a second database file
- flow_delete: delete one flow by id, or everything with all=true
- flow_stats: flow/chunk counts and total stored bytes

## Filter language
Atoms start with ~ and may take an argument:
- ~all            every flow
- ~m PATTERN      method matches regex PATTERN
- ~u PATTERN      URL matches regex PATTERN
- ~d PATTERN      host matches regex PATTERN
- ~c CODE         response status code equals CODE
- ~h PATTERN      any request or response header line matches PATTERN
- ~marked         flow carries a marker
- ~marker PATTERN marker label matches PATTERN
- ~comment PATTERN comment matches PATTERN
- ~q              request with no response yet
- ~s              request with a response
- ~src PATTERN    client address matches PATTERN
- ~dst PATTERN    server address matches PATTERN

A bare word is shorthand for ~u. Combine atoms with ! (not), & (and,
also implicit by juxtaposition) and | (or); parenthesize to group.
Regex matching is case-insensitive by default.

Examples:
- ~c 404                     all flows that got a 404
- ~d example\.com ~m POST    POSTs to example.com
- !~s                        flows still waiting for a response
- ~marked | ~comment todo    marked flows, or flows whose comment mentions todo

## Typical workflow
1. flow_count with a filter to gauge result size
2. flow_query to page through matching ids
3. flow_get on interesting ids
4. flow_copy to extract a subset worth sharing`
}
