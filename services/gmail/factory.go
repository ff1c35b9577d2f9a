package gmail

import (
	"context"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/services/google"
)

type clientFactory struct {
	tokenService *google.TokenService
	cfg          *config.SyncConfig
	log          logger.Logger
}

func NewClientFactory(tokenService *google.TokenService, cfg *config.SyncConfig, log logger.Logger) interfaces.GmailClientFactory {
	return &clientFactory{
		tokenService: tokenService,
		cfg:          cfg,
		log:          log,
	}
}

func (f *clientFactory) ClientFor(ctx context.Context, userEmail string) (interfaces.GmailClient, error) {
	tokens, err := f.tokenService.ManagerFor(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	return NewGmailClient(userEmail, tokens, f.cfg, f.log), nil
}
