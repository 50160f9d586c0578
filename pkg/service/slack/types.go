package slack

import (
	"context"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

// Service provides the Slack API calls needed to refresh the local cache
type Service interface {
	// ListAccounts retrieves every workspace user, bots and deleted users included.
	// Filtering is left to the cache so that lookups by ID still resolve them.
	ListAccounts(ctx context.Context) ([]*model.Account, error)

	// ListChannels retrieves every conversation of the configured types, archived ones included
	ListChannels(ctx context.Context) ([]*model.Channel, error)
}
