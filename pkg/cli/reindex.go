package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/safe"
)

func cmdReindex() *cli.Command {
	var fileCfg config.File
	var cacheCfg config.Cache

	var flags []cli.Flag
	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)

	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the full-text search indexes from the cached rows",
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

			indexer, ok := repo.(interfaces.SearchIndexer)
			if !ok {
				return goerr.New("cache backend has no search index to rebuild")
			}
			if err := indexer.RebuildSearchIndex(ctx); err != nil {
				return err
			}

			safe.Fprintf(ctx, c.Root().Writer, "%s\n", color.GreenString("Search indexes rebuilt"))
			return nil
		},
	}
}
