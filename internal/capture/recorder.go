// Package capture is the producer-facing side of flowvault: the capture
// engine delivers flow snapshots through four event hooks, and the recorder
// serializes each snapshot into chunks and upserts them.
//
// The engine delivers events for a given flow serially; the recorder adds no
// parallelism of its own. Each hook call is one transactional put, so a
// snapshot is either fully persisted or not at all, and replaying an event
// is harmless (puts are idempotent upserts).
package capture

import (
	"context"
	"errors"
	"log/slog"

	"flowvault/internal/codec"
	"flowvault/internal/flow"
	"flowvault/internal/logging"
	"flowvault/internal/store"
)

// Recorder persists flow snapshots delivered by the capture engine.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to st.
func NewRecorder(st *store.Store, logger *slog.Logger) *Recorder {
	logger = logging.Default(logger).With("component", "recorder")
	return &Recorder{store: st, logger: logger}
}

// Request handles the new-request event.
func (r *Recorder) Request(ctx context.Context, flows ...*flow.Flow) error {
	return r.record(ctx, flows)
}

// Response handles the response-received event. The snapshot replaces the
// flow's metadata chunks and adds the response content chunk.
func (r *Recorder) Response(ctx context.Context, flows ...*flow.Flow) error {
	return r.record(ctx, flows)
}

// Update handles the flow-updated event (marking, comments, edits).
func (r *Recorder) Update(ctx context.Context, flows ...*flow.Flow) error {
	return r.record(ctx, flows)
}

// Error handles the flow-error event. The snapshot is persisted as-is; a
// flow that errored before a response simply has no response chunks.
func (r *Recorder) Error(ctx context.Context, flows ...*flow.Flow) error {
	return r.record(ctx, flows)
}

// record encodes every snapshot and writes the batch in one transaction.
// Unsupported flow kinds are logged and dropped — never surfaced to the
// producer. Store failures propagate; the caller owns retry policy.
func (r *Recorder) record(ctx context.Context, flows []*flow.Flow) error {
	var batch []codec.Chunk
	for _, f := range flows {
		chunks, err := codec.Encode(f)
		if err != nil {
			if errors.Is(err, codec.ErrUnsupportedFlowKind) {
				r.logger.Warn("dropping flow with unsupported kind",
					"flow_id", f.ID, "kind", string(f.Kind))
				continue
			}
			return err
		}
		batch = append(batch, chunks...)
	}
	if len(batch) == 0 {
		return nil
	}
	return r.store.Put(ctx, batch)
}
