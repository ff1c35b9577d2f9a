package services

import (
	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/repository"
	"github.com/taskilo/mailsync/services/events"
	"github.com/taskilo/mailsync/services/gmail"
	"github.com/taskilo/mailsync/services/google"
	"github.com/taskilo/mailsync/services/sync"
	"github.com/taskilo/mailsync/services/watch"
)

type Services struct {
	TokenService   *google.TokenService
	ClientFactory  interfaces.GmailClientFactory
	SyncService    interfaces.SyncService
	WatchService   interfaces.WatchService
	EventPublisher interfaces.EventPublisher
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisherConfig := &events.PublisherConfig{
			MessageTTL:          events.DefaultMessageTTL,
			MaxRetries:          events.DefaultMaxRetries,
			PublishTimeout:      events.DefaultPublishTimeout,
			ReconnectBackoff:    events.DefaultReconnectBackoff,
			MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
		}
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	}

	tokenService := google.NewTokenService(cfg.GoogleOAuthConfig, repos.CredentialRepository, log)
	clientFactory := gmail.NewClientFactory(tokenService, cfg.SyncConfig, log)

	services := Services{
		TokenService:   tokenService,
		ClientFactory:  clientFactory,
		SyncService:    sync.NewSyncService(cfg.SyncConfig, clientFactory, repos.EmailRepository, repos.SyncStateRepository, publisher, log),
		WatchService:   watch.NewWatchService(cfg.SyncConfig, cfg.GoogleOAuthConfig, clientFactory, repos.WatchRepository, repos.SyncStateRepository, log),
		EventPublisher: publisher,
	}

	return &services, nil
}
