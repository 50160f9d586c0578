package sqlite

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// snapshotSchema is instantiated once per snapshot table. The FTS5 table uses the snapshot table as
// external content, so the triggers are the only writers of the index.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS {{table}} (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	search_text TEXT NOT NULL DEFAULT '',
	visible     INTEGER NOT NULL DEFAULT 1,
	data        TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_{{table}}_visible_name ON {{table}}(visible, name);

CREATE VIRTUAL TABLE IF NOT EXISTS {{table}}_fts USING fts5(
	name,
	search_text,
	content='{{table}}',
	tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS {{table}}_fts_insert AFTER INSERT ON {{table}} BEGIN
	INSERT INTO {{table}}_fts(rowid, name, search_text)
	VALUES (new.rowid, new.name, new.search_text);
END;

CREATE TRIGGER IF NOT EXISTS {{table}}_fts_delete AFTER DELETE ON {{table}} BEGIN
	INSERT INTO {{table}}_fts({{table}}_fts, rowid, name, search_text)
	VALUES ('delete', old.rowid, old.name, old.search_text);
END;

CREATE TRIGGER IF NOT EXISTS {{table}}_fts_update AFTER UPDATE ON {{table}} BEGIN
	INSERT INTO {{table}}_fts({{table}}_fts, rowid, name, search_text)
	VALUES ('delete', old.rowid, old.name, old.search_text);
	INSERT INTO {{table}}_fts(rowid, name, search_text)
	VALUES (new.rowid, new.name, new.search_text);
END;
`

const coordinationSchema = `
CREATE TABLE IF NOT EXISTS locks (
	key         TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	acquired_at INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_locks_expires_at ON locks(expires_at);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func snapshotDDL(table string) string {
	return strings.ReplaceAll(snapshotSchema, "{{table}}", table)
}

// initSchema creates every table, index and trigger if missing. It is safe to run concurrently
// from several processes: the IMMEDIATE transaction serializes them and every statement is idempotent.
func (c *Client) initSchema(ctx context.Context) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin schema transaction", goerr.T(TagStorage))
	}
	defer func() { _ = tx.Rollback() }()

	statements := []struct {
		name string
		ddl  string
	}{
		{name: c.accounts.table(), ddl: snapshotDDL(c.accounts.table())},
		{name: c.channels.table(), ddl: snapshotDDL(c.channels.table())},
		{name: "coordination", ddl: coordinationSchema},
	}
	for _, st := range statements {
		if _, err := tx.ExecContext(ctx, st.ddl); err != nil {
			return goerr.Wrap(err, "failed to apply schema", goerr.V("schema", st.name), goerr.T(TagStorage))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit schema", goerr.T(TagStorage))
	}
	return nil
}

// RebuildSearchIndex regenerates both full-text indexes from the snapshot tables
func (c *Client) RebuildSearchIndex(ctx context.Context) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, table := range []string{c.accounts.table(), c.channels.table()} {
		fts := table + "_fts"
		if _, err := conn.ExecContext(ctx, "INSERT INTO "+fts+"("+fts+") VALUES ('rebuild')"); err != nil {
			return goerr.Wrap(err, "failed to rebuild search index", goerr.V("table", table), goerr.T(TagStorage))
		}
	}
	return nil
}
