package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/usecase"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/safe"
)

func cmdRefresh() *cli.Command {
	var fileCfg config.File
	var cacheCfg config.Cache
	var slackCfg config.Slack
	var target string
	var force bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "target",
			Aliases:     []string{"t"},
			Usage:       "Collections to refresh (users, channels, all)",
			Value:       string(model.RefreshTargetAll),
			Destination: &target,
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Refresh even when the cache is fresh",
			Destination: &force,
		},
	}
	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch users and channels from Slack into the cache",
		Flags: flags,
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
			result, err := uc.Cache.Refresh(ctx, model.ParseRefreshTarget(target), force)
			if result != nil {
				printRefreshResult(ctx, c, result)
			}
			return err
		},
	}
}

func printRefreshResult(ctx context.Context, c *cli.Command, result *model.RefreshResult) {
	w := c.Root().Writer
	if result.Skipped {
		safe.Fprintf(ctx, w, "%s\n", color.YellowString("Cache is fresh, nothing to do (use --force to refresh anyway)"))
		return
	}

	if result.Target.Includes(model.CacheKindAccounts) {
		safe.Fprintf(ctx, w, "%s %d users\n", color.GreenString("Refreshed"), result.AccountsReplaced)
	}
	if result.Target.Includes(model.CacheKindChannels) {
		safe.Fprintf(ctx, w, "%s %d channels\n", color.GreenString("Refreshed"), result.ChannelsReplaced)
	}
}
