package errutil_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/errutil"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

func TestHandle(t *testing.T) {
	tagDB := goerr.NewTag("db")

	t.Run("nil error", func(t *testing.T) {
		gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
	})

	t.Run("logs goerr values and tag", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), logging.New(&buf, slog.LevelDebug, logging.FormatJSON))

		err := goerr.New("disk full", goerr.V("path", "/tmp/cache.db"), goerr.T(tagDB))
		got := errutil.Handle(ctx, err, "failed to refresh", tagDB)
		gt.Error(t, got).Is(err)

		gt.String(t, buf.String()).Contains("failed to refresh")
		gt.String(t, buf.String()).Contains("/tmp/cache.db")
		gt.String(t, buf.String()).Contains(`"category":"db"`)
	})

	t.Run("plain errors are logged as is", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), logging.New(&buf, slog.LevelDebug, logging.FormatJSON))

		errPlain := errors.New("plain failure")
		gt.Error(t, errutil.Handle(ctx, errPlain, "oops")).Is(errPlain)
		gt.String(t, buf.String()).Contains("plain failure")
	})
}
