package sync

import (
	"context"
	"sort"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/dto"
	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/enum"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
	"github.com/taskilo/mailsync/services/gmail"
)

type syncService struct {
	cfg           *config.SyncConfig
	clientFactory interfaces.GmailClientFactory
	emailRepo     interfaces.EmailRepository
	syncStateRepo interfaces.SyncStateRepository
	publisher     interfaces.EventPublisher
	log           logger.Logger
}

func NewSyncService(
	cfg *config.SyncConfig,
	clientFactory interfaces.GmailClientFactory,
	emailRepo interfaces.EmailRepository,
	syncStateRepo interfaces.SyncStateRepository,
	publisher interfaces.EventPublisher,
	log logger.Logger,
) interfaces.SyncService {
	return &syncService{
		cfg:           cfg,
		clientFactory: clientFactory,
		emailRepo:     emailRepo,
		syncStateRepo: syncStateRepo,
		publisher:     publisher,
		log:           log,
	}
}

// Sync runs one pass for the mailbox: incremental off the history cursor
// when one exists, otherwise (or when the incremental path fails for any
// reason) a date-bounded fallback listing. The fallback never advances the
// cursor. A pass where both paths fail is not an error, it yields an empty
// result and the next trigger tries again.
func (s *syncService) Sync(ctx context.Context, userEmail string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.Sync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	client, err := s.clientFactory.ClientFor(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	state, err := s.syncStateRepo.GetSyncState(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if state != nil && state.LastHistoryID > 0 {
		emails, incErr := s.incrementalSync(ctx, client, userEmail, state.LastHistoryID)
		if incErr == nil {
			return emails, nil
		}
		s.log.Warnf("[SyncService] incremental sync failed for %s, falling back: %v", userEmail, incErr)
		span.LogKV("incremental.error", incErr.Error())
	}

	emails, fbErr := s.fallbackSync(ctx, client, userEmail)
	if fbErr != nil {
		tracing.TraceErr(span, fbErr)
		s.log.Errorf("[SyncService] fallback sync failed for %s: %v", userEmail, fbErr)
		return []*models.Email{}, nil
	}
	return emails, nil
}

// ForceSync re-reads the most recent messages regardless of cursor state,
// capped for cost. Useful when a mailbox looks out of step with the provider.
func (s *syncService) ForceSync(ctx context.Context, userEmail string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.ForceSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	client, err := s.clientFactory.ClientFor(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	messageIDs, err := client.ListAll(ctx, s.cfg.ForceListMaxResults)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(messageIDs) > s.cfg.ForceProcessLimit {
		messageIDs = messageIDs[:s.cfg.ForceProcessLimit]
	}

	emails := s.fetchAndDecode(ctx, client, userEmail, messageIDs)
	if err := s.persist(ctx, userEmail, emails, enum.SyncTriggerForce); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogKV("result.count", len(emails))
	return emails, nil
}

func (s *syncService) incrementalSync(ctx context.Context, client interfaces.GmailClient, userEmail string, cursor uint64) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.incrementalSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)
	span.SetTag(tracing.SpanTagHistoryId, cursor)

	messageIDs, latestHistoryID, err := client.ListHistory(ctx, cursor)
	if err != nil {
		return nil, err
	}

	emails := s.fetchAndDecode(ctx, client, userEmail, messageIDs)
	if err := s.persist(ctx, userEmail, emails, utils.GetSyncTriggerFromContext(ctx)); err != nil {
		return nil, err
	}

	if latestHistoryID > cursor {
		if err := s.syncStateRepo.AdvanceCursor(ctx, userEmail, latestHistoryID, len(emails)); err != nil {
			// The emails are already persisted; a stale cursor only means the
			// next pass re-lists messages it will dedupe on insert.
			tracing.TraceErr(span, err)
			s.log.Warnf("[SyncService] failed to advance cursor for %s: %v", userEmail, err)
		}
	}

	span.LogKV("result.count", len(emails), "result.latestHistoryId", latestHistoryID)
	return emails, nil
}

func (s *syncService) fallbackSync(ctx context.Context, client interfaces.GmailClient, userEmail string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.fallbackSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	lookback := time.Duration(s.cfg.FallbackLookbackDays) * 24 * time.Hour
	messageIDs, err := client.ListRecent(ctx, lookback, s.cfg.FallbackMaxResults)
	if err != nil {
		return nil, err
	}

	emails := s.fetchAndDecode(ctx, client, userEmail, messageIDs)
	if err := s.persist(ctx, userEmail, emails, utils.GetSyncTriggerFromContext(ctx)); err != nil {
		return nil, err
	}
	if err := s.syncStateRepo.RecordSyncPass(ctx, userEmail, len(emails)); err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("[SyncService] failed to record sync pass for %s: %v", userEmail, err)
	}

	span.LogKV("result.count", len(emails))
	return emails, nil
}

// fetchAndDecode pulls and normalizes messages with a bounded number of
// concurrent workers. A failed message is logged and skipped; it never sinks
// the whole pass. Results come back ordered by the provider's internal date.
func (s *syncService) fetchAndDecode(ctx context.Context, client interfaces.GmailClient, userEmail string, messageIDs []string) []*models.Email {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.fetchAndDecode")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)
	span.LogKV("messageCount", len(messageIDs))

	if len(messageIDs) == 0 {
		return []*models.Email{}
	}

	concurrency := s.cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	semaphore := make(chan struct{}, concurrency)
	results := make([]*models.Email, len(messageIDs))
	done := make(chan int, len(messageIDs))

	for i, messageID := range messageIDs {
		go func(idx int, id string) {
			defer func() { done <- idx }()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			message, err := client.GetMessage(ctx, id)
			if err != nil {
				s.log.Warnf("[SyncService] skipping message %s for %s: %v", id, userEmail, err)
				return
			}
			email, err := gmail.DecodeMessage(userEmail, message)
			if err != nil {
				s.log.Warnf("[SyncService] failed to decode message %s for %s: %v", id, userEmail, err)
				return
			}
			results[idx] = email
		}(i, messageID)
	}

	for range messageIDs {
		<-done
	}

	emails := make([]*models.Email, 0, len(messageIDs))
	for _, email := range results {
		if email != nil {
			emails = append(emails, email)
		}
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].InternalDate < emails[j].InternalDate
	})

	span.LogKV("result.count", len(emails), "result.skipped", len(messageIDs)-len(emails))
	return emails
}

func (s *syncService) persist(ctx context.Context, userEmail string, emails []*models.Email, trigger enum.SyncTrigger) error {
	if len(emails) == 0 {
		return nil
	}

	inserted, err := s.emailRepo.AppendEmails(ctx, userEmail, emails)
	if err != nil {
		return err
	}
	if inserted == 0 || s.publisher == nil {
		return nil
	}

	emailIDs := make([]string, 0, len(emails))
	for _, email := range emails {
		emailIDs = append(emailIDs, email.ID)
	}

	event := dto.EmailsSynced{
		UserEmail: userEmail,
		Trigger:   trigger,
		Count:     inserted,
		EmailIDs:  emailIDs,
		SyncedAt:  utils.Now(),
	}
	if err := s.publisher.PublishEmailsSynced(ctx, event); err != nil {
		// Persisting won; a dropped event only delays downstream consumers
		// until the next pass.
		s.log.Errorf("[SyncService] failed to publish emails synced event for %s: %v", userEmail, err)
	}
	return nil
}
