package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

const (
	// DefaultPageSize is the page size requested from conversations.list
	DefaultPageSize = 200
)

// DefaultChannelTypes are the conversation types replicated into the cache
var DefaultChannelTypes = []string{"public_channel", "private_channel", "mpim", "im"}

// client implements Service interface
type client struct {
	api          *slack.Client
	pageSize     int
	channelTypes []string
	apiOptions   []slack.Option
}

// Option is a functional option for client configuration
type Option func(*client)

// WithPageSize sets the page size for paginated listings
func WithPageSize(n int) Option {
	return func(c *client) {
		c.pageSize = n
	}
}

// WithChannelTypes restricts which conversation types are listed
func WithChannelTypes(types ...string) Option {
	return func(c *client) {
		c.channelTypes = types
	}
}

// WithAPIURL points the client at another Slack API endpoint (must end with "/")
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiOptions = append(c.apiOptions, slack.OptionAPIURL(url))
	}
}

// New creates a new Slack service with the provided bot or user token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack token is required")
	}

	c := &client{
		pageSize:     DefaultPageSize,
		channelTypes: DefaultChannelTypes,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = slack.New(token, c.apiOptions...)

	return c, nil
}

// ListAccounts retrieves every user in the workspace
func (c *client) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	result := make([]*model.Account, 0, len(users))
	for _, u := range users {
		result = append(result, toAccount(u))
	}

	return result, nil
}

// ListChannels retrieves every conversation of the configured types, following pagination
func (c *client) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	var cursor string

	for {
		params := &slack.GetConversationsParameters{
			Types:           c.channelTypes,
			ExcludeArchived: false,
			Limit:           c.pageSize,
			Cursor:          cursor,
		}

		convs, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get conversations", goerr.V("cursor", cursor))
		}

		for _, conv := range convs {
			channels = append(channels, toChannel(conv))
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return channels, nil
}

func toAccount(u slack.User) *model.Account {
	return &model.Account{
		ID:      model.AccountID(u.ID),
		Name:    u.Name,
		IsBot:   u.IsBot,
		IsAdmin: u.IsAdmin,
		Deleted: u.Deleted,
		Profile: &model.AccountProfile{
			RealName:    u.Profile.RealName,
			DisplayName: u.Profile.DisplayName,
			Email:       u.Profile.Email,
			StatusText:  u.Profile.StatusText,
			StatusEmoji: u.Profile.StatusEmoji,
		},
	}
}

func toChannel(conv slack.Channel) *model.Channel {
	ch := &model.Channel{
		ID:         model.ChannelID(conv.ID),
		Name:       conv.Name,
		IsChannel:  conv.IsChannel,
		IsPrivate:  conv.IsPrivate,
		IsArchived: conv.IsArchived,
		IsGeneral:  conv.IsGeneral,
		IsIM:       conv.IsIM,
		IsMpIM:     conv.IsMpIM,
		IsMember:   conv.IsMember,
		Created:    int64(conv.Created),
		Creator:    conv.Creator,
		NumMembers: conv.NumMembers,
	}

	// direct messages have no name; the peer's user ID is the closest thing
	if ch.Name == "" && conv.IsIM {
		ch.Name = conv.User
	}

	if conv.Topic.Value != "" {
		ch.Topic = &model.ChannelTopic{
			Value:   conv.Topic.Value,
			Creator: conv.Topic.Creator,
			LastSet: int64(conv.Topic.LastSet),
		}
	}
	if conv.Purpose.Value != "" {
		ch.Purpose = &model.ChannelTopic{
			Value:   conv.Purpose.Value,
			Creator: conv.Purpose.Creator,
			LastSet: int64(conv.Purpose.LastSet),
		}
	}

	return ch
}
