package usecase

import (
	"time"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	slacksvc "github.com/junyeong-ai/mcp-slack/pkg/service/slack"
)

type UseCases struct {
	repo          interfaces.CacheRepository
	slackService  slacksvc.Service
	refreshWindow time.Duration
	Cache         *CacheUseCase
}

type Option func(*UseCases)

// WithRefreshWindow sets how old the cache may be before a non-forced refresh fetches again
func WithRefreshWindow(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.refreshWindow = d
	}
}

func New(repo interfaces.CacheRepository, slackService slacksvc.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:          repo,
		slackService:  slackService,
		refreshWindow: DefaultRefreshWindow,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Cache = NewCacheUseCase(repo, slackService, uc.refreshWindow)

	return uc
}
