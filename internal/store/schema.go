package store

import (
	"fmt"
)

// schemaVersion tags the current derived-object set. Bump it whenever
// flow_view, header_view, or the indexes change shape; stores written by an
// older build rebuild themselves at open time. The chunk table itself is
// deliberately version-free — chunk data is permanent, payload-format
// upgrades happen inside codec.Decode.
const schemaVersion = 1

// bootstrap creates the permanent part of the schema.
func (s *Store) bootstrap() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunk (
			fid  TEXT NOT NULL,
			kind TEXT NOT NULL,
			data BLOB,
			PRIMARY KEY (fid, kind)
		)
	`)
	return err
}

// derivedSchema creates every disposable query-acceleration object.
//
// flow_view flattens the commonly filtered and sortable fields out of the
// http_flow JSON documents so filters, ORDER BY, and LIMIT/OFFSET run without
// decoding flow objects. header_view merges all of a flow's request and
// response headers into a single "k=v"-lines string so a header regex costs
// one search() call per flow instead of one per header. The indexes
// accelerate equality and range predicates; they cannot help regexes.
const derivedSchema = `
CREATE VIEW flow_view AS
SELECT
	fid,
	json_extract(data, '$.request.method')          AS method,
	json_extract(data, '$.request.scheme')          AS scheme,
	json_extract(data, '$.request.host')            AS host,
	json_extract(data, '$.request.port')            AS port,
	json_extract(data, '$.request.path')            AS path,
	json_extract(data, '$.request.scheme') || '://' ||
		json_extract(data, '$.request.host') || ':' ||
		json_extract(data, '$.request.port') ||
		json_extract(data, '$.request.path')        AS url,
	json_extract(data, '$.response.status_code')    AS status_code,
	json_extract(data, '$.marked')                  AS marked,
	json_extract(data, '$.comment')                 AS comment,
	json_extract(data, '$.request.timestamp_start') AS ts_start,
	json_extract(data, '$.response.timestamp_end')  AS ts_end,
	(SELECT length(rc.data) FROM chunk rc
	  WHERE rc.fid = chunk.fid AND rc.kind = 'request_content')  AS request_size,
	(SELECT length(sc.data) FROM chunk sc
	  WHERE sc.fid = chunk.fid AND sc.kind = 'response_content') AS response_size,
	(SELECT json_extract(cc.data, '$.peername[0]') || ':' ||
	        json_extract(cc.data, '$.peername[1]')
	   FROM chunk cc
	  WHERE cc.fid = chunk.fid AND cc.kind = 'client_conn')      AS src,
	(SELECT json_extract(sv.data, '$.address[0]') || ':' ||
	        json_extract(sv.data, '$.address[1]')
	   FROM chunk sv
	  WHERE sv.fid = chunk.fid AND sv.kind = 'server_conn')      AS dst
FROM chunk
WHERE kind = 'http_flow';

CREATE VIEW header_view AS
SELECT fid, group_concat(kv, char(10)) AS kvstr FROM (
	SELECT chunk.fid AS fid,
	       json_extract(h.value, '$[0]') || '=' || json_extract(h.value, '$[1]') AS kv
	  FROM chunk, json_each(chunk.data, '$.request.headers') AS h
	 WHERE chunk.kind = 'http_flow'
	UNION ALL
	SELECT chunk.fid,
	       json_extract(h.value, '$[0]') || '=' || json_extract(h.value, '$[1]')
	  FROM chunk, json_each(chunk.data, '$.response.headers') AS h
	 WHERE chunk.kind = 'http_flow'
	   AND json_extract(chunk.data, '$.response') IS NOT NULL
)
GROUP BY fid;

CREATE INDEX idx_flow_status ON chunk (json_extract(data, '$.response.status_code'))
	WHERE kind = 'http_flow';
CREATE INDEX idx_flow_method ON chunk (json_extract(data, '$.request.method'))
	WHERE kind = 'http_flow';
CREATE INDEX idx_flow_marked ON chunk (json_extract(data, '$.marked'))
	WHERE kind = 'http_flow';
CREATE INDEX idx_flow_ts ON chunk (json_extract(data, '$.request.timestamp_start'))
	WHERE kind = 'http_flow';
`

// ensureDerived compares the stored version marker against schemaVersion.
// On mismatch it drops every non-chunk schema object and recreates the
// expected set, leaving chunk rows untouched. Not re-entrant: it runs once
// inside Open, before any event delivery.
func (s *Store) ensureDerived() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read version marker: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	s.logger.Info("rebuilding derived schema",
		"stored_version", version, "expected_version", schemaVersion)

	if err := s.dropDerived(); err != nil {
		return err
	}
	if _, err := s.db.Exec(derivedSchema); err != nil {
		return fmt.Errorf("create derived objects: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}
	return nil
}

// dropDerived removes every view, trigger, and non-automatic index.
func (s *Store) dropDerived() error {
	rows, err := s.db.Query(`
		SELECT type, name FROM sqlite_master
		 WHERE type IN ('view', 'index', 'trigger')
		   AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return fmt.Errorf("list derived objects: %w", err)
	}
	defer rows.Close()

	type object struct{ typ, name string }
	var objects []object
	for rows.Next() {
		var o object
		if err := rows.Scan(&o.typ, &o.name); err != nil {
			return fmt.Errorf("list derived objects: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list derived objects: %w", err)
	}

	for _, o := range objects {
		var stmt string
		switch o.typ {
		case "view":
			stmt = fmt.Sprintf(`DROP VIEW IF EXISTS %q`, o.name)
		case "index":
			stmt = fmt.Sprintf(`DROP INDEX IF EXISTS %q`, o.name)
		case "trigger":
			stmt = fmt.Sprintf(`DROP TRIGGER IF EXISTS %q`, o.name)
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("drop %s %s: %w", o.typ, o.name, err)
		}
	}
	return nil
}
