package errutil

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// Handle logs err with msg, including goerr values and stack traces, and returns err unchanged.
// The first of hints carried by err is logged as its category.
func Handle(ctx context.Context, err error, msg string, hints ...goerr.Tag) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)
	attrs := []any{"error", err.Error()}

	for _, tag := range hints {
		if goerr.HasTag(err, tag) {
			attrs = append(attrs, "category", tag.String())
			break
		}
	}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs,
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	}

	logger.Error(msg, attrs...)
	return err
}
