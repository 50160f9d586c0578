package cli

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"

	"github.com/junyeong-ai/mcp-slack/pkg/usecase"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/safe"
)

func cmdStatus() *cli.Command {
	var fileCfg config.File
	var cacheCfg config.Cache

	var flags []cli.Flag
	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)

	return &cli.Command{
		Name:  "status",
		Usage: "Show cache contents, freshness and refresh locks",
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

			uc := usecase.New(repo, nil)
			status, err := uc.Cache.Status(ctx)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			location := "in-memory"
			if file, ok := repo.(interface{ Path() string }); ok {
				location = file.Path()
			}
			safe.Fprintf(ctx, w, "Database:  %s\n", location)

			locks := map[model.CacheKind]*model.LockInfo{}
			if inspector, ok := repo.(interfaces.LockInspector); ok {
				if locks, err = inspector.RefreshLocks(ctx); err != nil {
					return err
				}
			}
			if status.Stale {
				safe.Fprintf(ctx, w, "Freshness: %s (ttl %s)\n", color.YellowString("stale"), cacheCfg.TTL())
			} else {
				safe.Fprintf(ctx, w, "Freshness: %s (ttl %s)\n", color.GreenString("fresh"), cacheCfg.TTL())
			}

			counts := map[model.CacheKind]int{
				model.CacheKindAccounts: status.Counts.Accounts,
				model.CacheKindChannels: status.Counts.Channels,
			}
			for _, kind := range model.CacheKinds {
				last := "never"
				if t := status.LastRefresh[kind]; !t.IsZero() {
					last = t.Local().Format(time.RFC3339)
				}
				safe.Fprintf(ctx, w, "%-9s  %6d rows  refreshed %s\n", kind, counts[kind], last)

				if info, ok := locks[kind]; ok {
					safe.Fprintf(ctx, w, "           %s by %s until %s\n",
						color.MagentaString("locked"),
						info.InstanceID,
						info.ExpiresAt.Local().Format(time.RFC3339),
					)
				}
			}
			return nil
		},
	}
}
