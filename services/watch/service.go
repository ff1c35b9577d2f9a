package watch

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

// watchedLabels limits push notifications to inbox activity.
var watchedLabels = []string{"INBOX"}

type watchService struct {
	cfg           *config.SyncConfig
	oauthCfg      *config.GoogleOAuthConfig
	clientFactory interfaces.GmailClientFactory
	watchRepo     interfaces.WatchRepository
	syncStateRepo interfaces.SyncStateRepository
	log           logger.Logger
}

func NewWatchService(
	cfg *config.SyncConfig,
	oauthCfg *config.GoogleOAuthConfig,
	clientFactory interfaces.GmailClientFactory,
	watchRepo interfaces.WatchRepository,
	syncStateRepo interfaces.SyncStateRepository,
	log logger.Logger,
) interfaces.WatchService {
	return &watchService{
		cfg:           cfg,
		oauthCfg:      oauthCfg,
		clientFactory: clientFactory,
		watchRepo:     watchRepo,
		syncStateRepo: syncStateRepo,
		log:           log,
	}
}

// Register creates or overwrites the push subscription for the mailbox and
// seeds the history cursor with the id the provider returns, so the first
// push notification can sync incrementally.
func (s *watchService) Register(ctx context.Context, userEmail string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WatchService.Register")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	if s.oauthCfg.PubSubTopic == "" {
		tracing.TraceErr(span, mailsync_errors.ErrWatchTopicMissing)
		return mailsync_errors.ErrWatchTopicMissing
	}

	client, err := s.clientFactory.ClientFor(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	result, err := client.Watch(ctx, s.oauthCfg.PubSubTopic, watchedLabels)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	subscription := &models.WatchSubscription{
		UserEmail:  userEmail,
		Topic:      s.oauthCfg.PubSubTopic,
		HistoryID:  result.HistoryID,
		Expiration: result.Expiration,
		Enabled:    true,
	}
	if err := s.watchRepo.SaveWatch(ctx, subscription); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if result.HistoryID > 0 {
		if err := s.syncStateRepo.AdvanceCursor(ctx, userEmail, result.HistoryID, 0); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("[WatchService] failed to seed history cursor for %s: %v", userEmail, err)
		}
	}

	s.log.Infof("[WatchService] registered watch for %s, expires %s", userEmail, result.Expiration.Format(time.RFC3339))
	span.LogKV("result.historyId", result.HistoryID, "result.expiration", result.Expiration)
	return nil
}

// RenewIfNeeded re-registers the subscription when it expires within the
// renewal window. A healthy subscription is left alone.
func (s *watchService) RenewIfNeeded(ctx context.Context, userEmail string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WatchService.RenewIfNeeded")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	subscription, err := s.watchRepo.GetWatch(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if subscription == nil || !subscription.Enabled {
		span.LogKV("result", "no active subscription")
		return nil
	}

	window := time.Duration(s.cfg.WatchRenewalWindowHr) * time.Hour
	if !subscription.ExpiresWithin(utils.Now(), window) {
		span.LogKV("result", "not due", "expiration", subscription.Expiration)
		return nil
	}

	return s.Register(ctx, userEmail)
}

// RenewAll checks every enabled subscription. One mailbox failing does not
// stop the sweep.
func (s *watchService) RenewAll(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WatchService.RenewAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	subscriptions, err := s.watchRepo.ListEnabled(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	var lastErr error
	for _, subscription := range subscriptions {
		if err := s.RenewIfNeeded(ctx, subscription.UserEmail); err != nil {
			s.log.Errorf("[WatchService] failed to renew watch for %s: %v", subscription.UserEmail, err)
			lastErr = err
		}
	}

	span.LogKV("checked", len(subscriptions))
	return lastErr
}
