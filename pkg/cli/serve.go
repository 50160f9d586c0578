package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/service/worker"
	"github.com/junyeong-ai/mcp-slack/pkg/usecase"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var fileCfg config.File
	var cacheCfg config.Cache
	var slackCfg config.Slack

	var flags []cli.Flag
	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Keep the cache fresh in the background until interrupted",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			file, err := fileCfg.Load()
			if err != nil {
				return err
			}

			repo, err := cacheCfg.Configure(ctx, c, file)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			slackSvc, err := slackCfg.Configure(file)
			if err != nil {
				return err
			}

			uc := usecase.New(repo, slackSvc)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			refreshWorker := worker.NewCacheRefreshWorker(uc.Cache, cacheCfg.RefreshInterval())
			if err := refreshWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start cache refresh worker")
			}

			attrs := []any{"cache", cacheCfg, "slack", slackCfg}
			if shared, ok := repo.(interface{ InstanceID() string }); ok {
				attrs = append(attrs, "instance_id", shared.InstanceID())
			}
			logging.From(ctx).Info("serving cache", attrs...)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				logging.From(ctx).Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
			}

			refreshWorker.Stop()
			return nil
		},
	}
}
