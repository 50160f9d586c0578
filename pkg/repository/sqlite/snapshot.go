package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// snapshotStore holds the local copy of one remote collection. The row set of its table is
// always exactly one complete collection: replace swaps generations inside a single transaction.
type snapshotStore[T any] struct {
	client *Client
	codec  codec[T]
}

func newSnapshotStore[T any](client *Client, c codec[T]) *snapshotStore[T] {
	return &snapshotStore[T]{
		client: client,
		codec:  c,
	}
}

func (s *snapshotStore[T]) kind() model.CacheKind {
	return s.codec.kind()
}

func (s *snapshotStore[T]) table() string {
	return string(s.codec.kind())
}

// stage encodes items, dropping the ones that fail. Later duplicates of an ID replace earlier ones.
func (s *snapshotStore[T]) stage(ctx context.Context, items []*T) ([]*snapshotRow, int) {
	logger := logging.From(ctx)

	rows := make([]*snapshotRow, 0, len(items))
	index := make(map[string]int, len(items))
	dropped := 0

	for i, item := range items {
		row, err := s.codec.encode(item)
		if err != nil {
			dropped++
			logger.Warn("dropping entity that cannot be serialized",
				"kind", s.kind(),
				"position", i,
				"error", err.Error(),
			)
			continue
		}

		if pos, ok := index[row.id]; ok {
			rows[pos] = row
			continue
		}
		index[row.id] = len(rows)
		rows = append(rows, row)
	}

	return rows, dropped
}

// replace installs items as the new snapshot and records the refresh time, all in one transaction.
// It does not coordinate with other instances; callers hold the kind's lock around it.
func (s *snapshotStore[T]) replace(ctx context.Context, items []*T) (int, error) {
	if len(items) == 0 {
		return 0, goerr.Wrap(ErrInvalidInput, "refusing to replace snapshot with an empty collection",
			goerr.V(KindKey, s.kind()))
	}

	rows, dropped := s.stage(ctx, items)
	if len(rows) == 0 {
		return 0, goerr.Wrap(ErrInvalidInput, "no entity could be serialized",
			goerr.V(KindKey, s.kind()),
			goerr.V("dropped", dropped),
		)
	}

	conn, err := s.client.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to begin replace transaction", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.table()); err != nil {
		return 0, goerr.Wrap(err, "failed to clear snapshot", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+s.table()+` (id, name, search_text, visible, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to prepare snapshot insert", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}
	defer stmt.Close()

	now := s.client.now()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.id, row.name, row.searchText, boolToInt(row.visible), string(row.data), now.Unix()); err != nil {
			return 0, goerr.Wrap(err, "failed to insert snapshot row",
				goerr.V(KindKey, s.kind()),
				goerr.V(EntityIDKey, row.id),
				goerr.T(TagStorage),
			)
		}
	}

	if err := recordRefresh(ctx, tx, s.kind(), now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, goerr.Wrap(err, "failed to commit snapshot", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}

	logging.From(ctx).Info("snapshot replaced",
		"kind", s.kind(),
		"stored", len(rows),
		"dropped", dropped,
	)

	return len(rows), nil
}

// list returns every visible entity ordered by name
func (s *snapshotStore[T]) list(ctx context.Context) ([]*T, error) {
	return s.query(ctx, "SELECT data FROM "+s.table()+" WHERE visible = 1 ORDER BY name, id")
}

// listLimit is list truncated to limit entries
func (s *snapshotStore[T]) listLimit(ctx context.Context, limit int) ([]*T, error) {
	return s.query(ctx, "SELECT data FROM "+s.table()+" WHERE visible = 1 ORDER BY name, id LIMIT ?", limit)
}

// get returns the entity with the given ID, or nil and no error if it does not exist
func (s *snapshotStore[T]) get(ctx context.Context, id string) (*T, error) {
	conn, err := s.client.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var data string
	err = conn.QueryRowContext(ctx, "SELECT data FROM "+s.table()+" WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get cached entity",
			goerr.V(KindKey, s.kind()), goerr.V(EntityIDKey, id), goerr.T(TagStorage))
	}

	v, err := decodeEntity[T]([]byte(data))
	if err != nil {
		return nil, goerr.Wrap(err, "cached entity is corrupted", goerr.V(KindKey, s.kind()), goerr.V(EntityIDKey, id))
	}
	return v, nil
}

// count returns the number of stored rows, including hidden ones
func (s *snapshotStore[T]) count(ctx context.Context) (int, error) {
	conn, err := s.client.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table()).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count snapshot rows", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}
	return n, nil
}

// query runs a statement selecting the data column and decodes every row.
// Rows that fail to decode are skipped.
func (s *snapshotStore[T]) query(ctx context.Context, query string, args ...any) ([]*T, error) {
	conn, err := s.client.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return s.queryConn(ctx, conn, query, args...)
}

func (s *snapshotStore[T]) queryConn(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]*T, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query snapshot", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}
	defer rows.Close()

	result := []*T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, goerr.Wrap(err, "failed to scan snapshot row", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
		}

		v, err := decodeEntity[T]([]byte(data))
		if err != nil {
			logging.From(ctx).Warn("skipping cached entity that cannot be decoded",
				"kind", s.kind(),
				"error", err.Error(),
			)
			continue
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate snapshot rows", goerr.V(KindKey, s.kind()), goerr.T(TagStorage))
	}

	return result, nil
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
