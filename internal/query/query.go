// Package query is the thin glue between filter text and the store: it
// parses and compiles a filter, runs the compiled fragment with paging and
// sort parameters, and returns ordered flow ids. Materializing full records
// for the visible page happens on demand through Get, one flow at a time.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"flowvault/internal/codec"
	"flowvault/internal/filter"
	"flowvault/internal/flow"
	"flowvault/internal/logging"
	"flowvault/internal/store"
)

// sortColumns whitelists the sort keys callers may pass, mapping them onto
// flow_view columns. Keeping the map closed means sort keys never reach SQL
// text unchecked.
var sortColumns = map[string]string{
	"time":   "ts_start",
	"url":    "url",
	"method": "method",
	"status": "status_code",
	"size":   "response_size",
}

// Executor runs compiled filters against one store.
type Executor struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Executor over st.
func New(st *store.Store, logger *slog.Logger) *Executor {
	logger = logging.Default(logger).With("component", "query")
	return &Executor{store: st, logger: logger}
}

// compile turns filter text into a predicate. Empty text matches all flows.
func compile(filterText string) (filter.Predicate, error) {
	if filterText == "" {
		return filter.MatchAll, nil
	}
	node, err := filter.Parse(filterText)
	if err != nil {
		return filter.Predicate{}, err
	}
	return filter.Compile(node), nil
}

// Flows returns the ordered page of flow ids matching filterText. sortKey
// must be one of time, url, method, status, size. A negative limit means no
// limit.
func (e *Executor) Flows(ctx context.Context, filterText, sortKey string, desc bool, limit, offset int) ([]string, error) {
	column, ok := sortColumns[sortKey]
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", sortKey)
	}
	pred, err := compile(filterText)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = -1 // SQLite: negative LIMIT disables the cap
	}
	return e.store.FlowIDs(ctx, store.QueryOptions{
		Where:   pred.Fragment,
		Params:  pred.Params,
		OrderBy: column,
		Desc:    desc,
		Limit:   limit,
		Offset:  offset,
	})
}

// Count returns the total number of flows matching filterText, ignoring
// paging. Running it alongside Flows gives total-result counts for a page.
func (e *Executor) Count(ctx context.Context, filterText string) (int, error) {
	pred, err := compile(filterText)
	if err != nil {
		return 0, err
	}
	return e.store.CountFlows(ctx, pred.Fragment, pred.Params)
}

// Get materializes one flow record from its chunk set. A flow with a
// corrupt or incomplete chunk set returns a *codec.DecodeError; callers
// rendering a page skip that flow rather than failing the render.
func (e *Executor) Get(ctx context.Context, flowID string) (*flow.Flow, error) {
	chunks, err := e.store.ChunksFor(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, &codec.DecodeError{FlowID: flowID, Err: codec.ErrEmptyChunkSet}
	}
	return codec.Decode(chunks)
}

// CopyTo copies every flow matching filterText into a second store at path.
// The target ends up fully populated or untouched. Returns the number of
// chunk rows copied.
func (e *Executor) CopyTo(ctx context.Context, path, filterText string) (int64, error) {
	pred, err := compile(filterText)
	if err != nil {
		return 0, err
	}
	return e.store.CopyTo(ctx, path, pred.Fragment, pred.Params)
}
