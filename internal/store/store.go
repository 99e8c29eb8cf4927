// Package store persists flow chunks in an embedded SQLite database and
// maintains the disposable query-acceleration schema built over them.
//
// The durable surface is a single chunk table keyed by (fid, kind). Every
// other schema object — the flow_view and header_view views and the
// expression indexes — is derived, versioned as a set, and rebuilt from
// scratch whenever the stored version marker does not match this build.
// Chunk rows are never touched by a rebuild.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"flowvault/internal/codec"
	"flowvault/internal/logging"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrStore marks transactional storage failures. Puts are idempotent
// upserts, so a failed batch is safe to retry wholesale.
var ErrStore = errors.New("store error")

// Options configures durability behavior. Zero values take the defaults
// below; see internal/config for the file-based source of these knobs.
type Options struct {
	// JournalMode is the SQLite journal mode ("WAL" by default).
	JournalMode string
	// Synchronous is the SQLite synchronous level ("NORMAL" by default).
	// "OFF" trades a flow lost on power failure for faster event ingest.
	Synchronous string
	// BusyTimeoutMS bounds lock waits (5000 by default).
	BusyTimeoutMS int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.JournalMode == "" {
		out.JournalMode = "WAL"
	}
	if out.Synchronous == "" {
		out.Synchronous = "NORMAL"
	}
	if out.BusyTimeoutMS <= 0 {
		out.BusyTimeoutMS = 5000
	}
	return out
}

// Store is a flow chunk store backed by one shared SQLite connection.
// It does not parallelize work internally; the capture engine's serial
// event delivery is the concurrency model.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path, applies durability pragmas,
// bootstraps the chunk table, registers the search() SQL function, and
// rebuilds the derived schema if its version marker is stale. The rebuild
// completes before Open returns, so event delivery may begin immediately
// after.
func Open(path string, opts Options, logger *slog.Logger) (*Store, error) {
	logger = logging.Default(logger).With("component", "store")

	if err := registerSearch(); err != nil {
		return nil, fmt.Errorf("register search function: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Pragmas and ATTACH are per-connection state; pin the pool to one
	// connection so they apply to every statement.
	db.SetMaxOpenConns(1)

	o := opts.withDefaults()
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", o.JournalMode),
		fmt.Sprintf("PRAGMA synchronous = %s", o.Synchronous),
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.BusyTimeoutMS),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	if err := s.ensureDerived(); err != nil {
		db.Close()
		return nil, fmt.Errorf("derived schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a batch of chunks inside one transaction: all rows commit or
// none do. The upsert key is (fid, kind) with replace semantics, so writing
// the same batch twice leaves the same rows. The caller owns retry policy.
func (s *Store) Put(ctx context.Context, chunks []codec.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if err := codec.ValidateKind(c.Kind); err != nil {
			return fmt.Errorf("put: %w: %w", ErrStore, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put: %w: %w", ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk (fid, kind, data) VALUES (?, ?, ?)
			 ON CONFLICT (fid, kind) DO UPDATE SET data = excluded.data`,
			c.FlowID, string(c.Kind), c.Data,
		); err != nil {
			return fmt.Errorf("put %s/%s: %w: %w", c.FlowID, c.Kind, ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put commit: %w: %w", ErrStore, err)
	}
	return nil
}

// ChunksFor returns all chunks for one flow id, ordered by kind for
// deterministic output. An unknown id returns an empty set, not an error.
func (s *Store) ChunksFor(ctx context.Context, flowID string) ([]codec.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fid, kind, data FROM chunk WHERE fid = ? ORDER BY kind`, flowID)
	if err != nil {
		return nil, fmt.Errorf("chunks for %s: %w: %w", flowID, ErrStore, err)
	}
	defer rows.Close()

	var chunks []codec.Chunk
	for rows.Next() {
		var c codec.Chunk
		var kind string
		if err := rows.Scan(&c.FlowID, &kind, &c.Data); err != nil {
			return nil, fmt.Errorf("chunks for %s: %w: %w", flowID, ErrStore, err)
		}
		c.Kind = codec.Kind(kind)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Delete removes every chunk of one flow.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunk WHERE fid = ?`, flowID); err != nil {
		return fmt.Errorf("delete %s: %w: %w", flowID, ErrStore, err)
	}
	return nil
}

// Truncate removes all chunks. Derived objects stay in place; they are views
// and expression indexes over the chunk table and empty out with it.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunk`); err != nil {
		return fmt.Errorf("truncate: %w: %w", ErrStore, err)
	}
	return nil
}

// QueryOptions selects and orders flow ids from the flow_view derived view.
// Where is a compiled predicate fragment whose placeholders line up with
// Params; OrderBy must be a flow_view column name (callers whitelist it).
type QueryOptions struct {
	Where   string
	Params  []any
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// FlowIDs runs a compiled predicate against flow_view and returns the
// ordered page of matching flow ids.
func (s *Store) FlowIDs(ctx context.Context, q QueryOptions) ([]string, error) {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf(
		`SELECT fid FROM flow_view WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		q.Where, q.OrderBy, dir,
	)
	args := append(append([]any{}, q.Params...), q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("flow query: %w: %w", ErrStore, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("flow query: %w: %w", ErrStore, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountFlows returns the total number of flows matching a compiled
// predicate, ignoring paging.
func (s *Store) CountFlows(ctx context.Context, where string, params []any) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM flow_view WHERE %s`, where)
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("flow count: %w: %w", ErrStore, err)
	}
	return n, nil
}

// Stats holds aggregate store statistics.
type Stats struct {
	Flows      int   `json:"flows"`
	Chunks     int   `json:"chunks"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats returns flow/chunk counts and the total payload size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT count(DISTINCT fid), count(*), COALESCE(sum(length(data)), 0) FROM chunk`,
	).Scan(&st.Flows, &st.Chunks, &st.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("stats: %w: %w", ErrStore, err)
	}
	return st, nil
}
