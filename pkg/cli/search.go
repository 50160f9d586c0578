package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/cli/config"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/sqlite"
	"github.com/junyeong-ai/mcp-slack/pkg/usecase"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/safe"
)

type searchOptions struct {
	file   config.File
	cache  config.Cache
	limit  int
	asJSON bool
}

func (x *searchOptions) flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       sqlite.DefaultSearchLimit,
			Destination: &x.limit,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print results as JSON",
			Destination: &x.asJSON,
		},
	}
	flags = append(flags, x.file.Flags()...)
	flags = append(flags, x.cache.Flags()...)
	return flags
}

// open returns a use case without a Slack service; searching only reads the cache
func (x *searchOptions) open(ctx context.Context, c *cli.Command) (*usecase.UseCases, io.Closer, error) {
	file, err := x.file.Load()
	if err != nil {
		return nil, nil, err
	}
	repo, err := x.cache.Configure(ctx, c, file)
	if err != nil {
		return nil, nil, err
	}
	return usecase.New(repo, nil), repo, nil
}

func cmdSearch() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the cached users or channels",
		Commands: []*cli.Command{
			cmdSearchUsers(),
			cmdSearchChannels(),
		},
	}
}

func cmdSearchUsers() *cli.Command {
	var opts searchOptions

	return &cli.Command{
		Name:      "users",
		Usage:     "Search users by name, display name, real name or email",
		ArgsUsage: "[query]",
		Flags:     opts.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := opts.open(ctx, c)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, closer)

			accounts, err := uc.Cache.SearchAccounts(ctx, strings.Join(c.Args().Slice(), " "), opts.limit)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if opts.asJSON {
				return writeJSON(w, accounts)
			}
			for _, a := range accounts {
				printAccount(ctx, w, a)
			}
			return nil
		},
	}
}

func cmdSearchChannels() *cli.Command {
	var opts searchOptions

	return &cli.Command{
		Name:      "channels",
		Usage:     "Search channels by name, topic or purpose",
		ArgsUsage: "[query]",
		Flags:     opts.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := opts.open(ctx, c)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, closer)

			channels, err := uc.Cache.SearchChannels(ctx, strings.Join(c.Args().Slice(), " "), opts.limit)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if opts.asJSON {
				return writeJSON(w, channels)
			}
			for _, ch := range channels {
				printChannel(ctx, w, ch)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode results")
	}
	return nil
}

func printAccount(ctx context.Context, w io.Writer, a *model.Account) {
	detail := a.RealName()
	if email := a.Email(); email != "" {
		detail += " <" + email + ">"
	}
	safe.Fprintf(ctx, w, "%s  %s  %s\n",
		color.CyanString(string(a.ID)),
		color.New(color.Bold).Sprint(a.Name),
		detail,
	)
}

func printChannel(ctx context.Context, w io.Writer, ch *model.Channel) {
	var topic string
	if ch.Topic != nil {
		topic = ch.Topic.Value
	}

	kind := "public"
	switch {
	case ch.IsIM:
		kind = "im"
	case ch.IsMpIM:
		kind = "mpim"
	case ch.IsPrivate:
		kind = "private"
	}

	safe.Fprintf(ctx, w, "%s  %s  %s  %s\n",
		color.CyanString(string(ch.ID)),
		color.New(color.Bold).Sprint("#"+ch.Name),
		color.HiBlackString(kind),
		topic,
	)
}
