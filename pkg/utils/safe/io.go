package safe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// Close closes closer and logs a failure. A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Fprintf writes formatted output to w and logs a failure. A nil writer is ignored.
func Fprintf(ctx context.Context, w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		logging.From(ctx).Error("Failed to write", slog.Any("error", err))
	}
}
