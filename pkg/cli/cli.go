package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/sqlite"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/errutil"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

func Run(ctx context.Context, args []string, version string) error {
	return run(ctx, args, version, os.Stdout)
}

func run(ctx context.Context, args []string, version string, w io.Writer) error {
	var loggerCfg config.Logger
	var closer func()

	app := &cli.Command{
		Name:    "mcp-slack",
		Usage:   "Local Slack users and channels cache shared by MCP server instances",
		Version: version,
		Writer:  w,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			logging.Default().Debug("Starting mcp-slack", "logger", loggerCfg)
			return logging.With(ctx, logging.Default()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdRefresh(),
			cmdSearch(),
			cmdStatus(),
			cmdReindex(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		return errutil.Handle(ctx, err, "failed to run app", sqlite.TagStorage)
	}

	return nil
}
