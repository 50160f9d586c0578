package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	slacksvc "github.com/junyeong-ai/mcp-slack/pkg/service/slack"
)

type Slack struct {
	botToken  string
	userToken string
	apiURL    string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("MCP_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-user-token",
			Usage:       "Slack User OAuth Token, used when no bot token is set",
			Category:    "Slack",
			Destination: &x.userToken,
			Sources:     cli.EnvVars("MCP_SLACK_USER_TOKEN", "SLACK_USER_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL",
			Category:    "Slack",
			Hidden:      true,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("MCP_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("user-token.len", len(x.userToken)),
	)
}

// token picks the bot token over the user token, flags and environment over the file
func (x *Slack) token(file *FileConfig) string {
	for _, t := range []string{x.botToken, x.userToken} {
		if t != "" {
			return t
		}
	}
	if file != nil {
		for _, t := range []string{file.Slack.BotToken, file.Slack.UserToken} {
			if t != "" {
				return t
			}
		}
	}
	return ""
}

// IsConfigured reports whether any token is available
func (x *Slack) IsConfigured(file *FileConfig) bool {
	return x.token(file) != ""
}

// Configure creates the Slack API client
func (x *Slack) Configure(file *FileConfig) (slacksvc.Service, error) {
	token := x.token(file)
	if token == "" {
		return nil, goerr.Wrap(ErrMissingToken, "set --slack-bot-token or --slack-user-token")
	}

	var opts []slacksvc.Option
	if x.apiURL != "" {
		opts = append(opts, slacksvc.WithAPIURL(x.apiURL))
	}

	svc, err := slacksvc.New(token, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
