package sqlite

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

var (
	ftsReserved = strings.NewReplacer("*", "", "%", "")
	likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
)

// processSearchQuery turns user input into an FTS5 phrase and the bare term used by the
// substring fallback. An empty phrase means the query matches everything.
func processSearchQuery(query string) (phrase, term string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" || trimmed == "*" || trimmed == "%" {
		return "", ""
	}

	term = strings.TrimSpace(ftsReserved.Replace(trimmed))
	if term == "" {
		return "", ""
	}

	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`, term
}

// search ranks visible entities against query. The FTS5 index is tried first; any failure there
// is logged and answered by a LIKE scan instead, so only a failing fallback reaches the caller.
func (s *snapshotStore[T]) search(ctx context.Context, query string, limit int) ([]*T, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	phrase, term := processSearchQuery(query)
	if phrase == "" {
		return s.listLimit(ctx, limit)
	}

	conn, err := s.client.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	fts := s.table() + "_fts"
	result, err := s.queryConn(ctx, conn, `
		SELECT s.data
		FROM `+fts+`
		JOIN `+s.table()+` s ON s.rowid = `+fts+`.rowid
		WHERE `+fts+` MATCH ? AND s.visible = 1
		ORDER BY bm25(`+fts+`, 10.0, 1.0), s.name
		LIMIT ?
	`, phrase, limit)
	if err == nil {
		return result, nil
	}

	logging.From(ctx).Warn("full-text search failed, falling back to substring match",
		"kind", s.kind(),
		"query", term,
		"error", err.Error(),
	)

	pattern := "%" + likeEscaper.Replace(term) + "%"
	result, err = s.queryConn(ctx, conn, `
		SELECT data FROM `+s.table()+`
		WHERE visible = 1
		AND (name LIKE ? ESCAPE '\' OR search_text LIKE ? ESCAPE '\')
		ORDER BY name, id
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "substring search failed", goerr.V(KindKey, s.kind()), goerr.V("query", term))
	}

	return result, nil
}
