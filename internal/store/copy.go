package store

import (
	"context"
	"fmt"
)

// CopyTo writes every chunk of the flows matching a compiled predicate into
// a second store at path, creating it if needed. The target chunk table is
// created and filled inside one transaction, so the target ends up either
// fully populated or untouched — no partial copy is ever observable.
//
// The target is a plain chunk database: opening it later with Open installs
// the current derived schema over the copied rows.
func (s *Store) CopyTo(ctx context.Context, path string, where string, params []any) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `ATTACH DATABASE ? AS target`, path); err != nil {
		return 0, fmt.Errorf("copy: attach %s: %w: %w", path, ErrStore, err)
	}
	// Detach with a fresh context: the connection is pinned, so a database
	// left attached after a cancelled copy would break every later CopyTo.
	defer s.db.ExecContext(context.Background(), `DETACH DATABASE target`) //nolint:errcheck

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("copy: %w: %w", ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS target.chunk (
			fid  TEXT NOT NULL,
			kind TEXT NOT NULL,
			data BLOB,
			PRIMARY KEY (fid, kind)
		)
	`); err != nil {
		return 0, fmt.Errorf("copy: create target table: %w: %w", ErrStore, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO target.chunk (fid, kind, data)
		SELECT fid, kind, data FROM chunk
		 WHERE fid IN (SELECT fid FROM flow_view WHERE %s)
		ON CONFLICT (fid, kind) DO UPDATE SET data = excluded.data
	`, where)
	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("copy: insert: %w: %w", ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("copy: commit: %w: %w", ErrStore, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return rows, nil
}
