package watch

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/utils"
)

type fakeWatchClient struct {
	watchCalls  int
	watchResult *interfaces.WatchResult
	watchErr    error
	lastTopic   string
	lastLabels  []string
}

func (f *fakeWatchClient) ListHistory(ctx context.Context, startHistoryID uint64) ([]string, uint64, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeWatchClient) ListRecent(ctx context.Context, lookback time.Duration, maxResults int64) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWatchClient) ListAll(ctx context.Context, maxResults int64) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWatchClient) GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWatchClient) Watch(ctx context.Context, topic string, labelIDs []string) (*interfaces.WatchResult, error) {
	f.watchCalls++
	f.lastTopic = topic
	f.lastLabels = labelIDs
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watchResult, nil
}

type fakeFactory struct {
	client interfaces.GmailClient
}

func (f *fakeFactory) ClientFor(ctx context.Context, userEmail string) (interfaces.GmailClient, error) {
	return f.client, nil
}

type fakeWatchRepo struct {
	watches map[string]*models.WatchSubscription
	saved   []*models.WatchSubscription
}

func (f *fakeWatchRepo) GetWatch(ctx context.Context, userEmail string) (*models.WatchSubscription, error) {
	return f.watches[userEmail], nil
}

func (f *fakeWatchRepo) SaveWatch(ctx context.Context, watch *models.WatchSubscription) error {
	if f.watches == nil {
		f.watches = make(map[string]*models.WatchSubscription)
	}
	f.watches[watch.UserEmail] = watch
	f.saved = append(f.saved, watch)
	return nil
}

func (f *fakeWatchRepo) ListEnabled(ctx context.Context) ([]*models.WatchSubscription, error) {
	var result []*models.WatchSubscription
	for _, w := range f.watches {
		if w.Enabled {
			result = append(result, w)
		}
	}
	return result, nil
}

type fakeStateRepo struct {
	seededHistoryID uint64
}

func (f *fakeStateRepo) GetSyncState(ctx context.Context, userEmail string) (*models.SyncState, error) {
	return nil, nil
}

func (f *fakeStateRepo) AdvanceCursor(ctx context.Context, userEmail string, historyID uint64, syncedCount int) error {
	f.seededHistoryID = historyID
	return nil
}

func (f *fakeStateRepo) RecordSyncPass(ctx context.Context, userEmail string, syncedCount int) error {
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func newTestService(client *fakeWatchClient, watchRepo *fakeWatchRepo, stateRepo *fakeStateRepo) interfaces.WatchService {
	return NewWatchService(
		&config.SyncConfig{WatchRenewalWindowHr: 24},
		&config.GoogleOAuthConfig{PubSubTopic: "projects/test/topics/gmail-push"},
		&fakeFactory{client: client},
		watchRepo,
		stateRepo,
		getLogger(),
	)
}

func TestRegister_SavesSubscriptionAndSeedsCursor(t *testing.T) {
	expiration := utils.Now().Add(7 * 24 * time.Hour)
	client := &fakeWatchClient{
		watchResult: &interfaces.WatchResult{HistoryID: 4242, Expiration: expiration},
	}
	watchRepo := &fakeWatchRepo{}
	stateRepo := &fakeStateRepo{}
	service := newTestService(client, watchRepo, stateRepo)

	err := service.Register(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, client.watchCalls)
	assert.Equal(t, "projects/test/topics/gmail-push", client.lastTopic)
	assert.Equal(t, []string{"INBOX"}, client.lastLabels)

	subscription := watchRepo.watches["user@example.com"]
	require.NotNil(t, subscription)
	assert.Equal(t, uint64(4242), subscription.HistoryID)
	assert.Equal(t, expiration, subscription.Expiration)
	assert.True(t, subscription.Enabled)

	assert.Equal(t, uint64(4242), stateRepo.seededHistoryID)
}

func TestRegister_MissingTopicFails(t *testing.T) {
	service := NewWatchService(
		&config.SyncConfig{WatchRenewalWindowHr: 24},
		&config.GoogleOAuthConfig{},
		&fakeFactory{client: &fakeWatchClient{}},
		&fakeWatchRepo{},
		&fakeStateRepo{},
		getLogger(),
	)

	err := service.Register(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, mailsync_errors.ErrWatchTopicMissing)
}

func TestRenewIfNeeded_RenewsInsideWindow(t *testing.T) {
	client := &fakeWatchClient{
		watchResult: &interfaces.WatchResult{HistoryID: 5000, Expiration: utils.Now().Add(7 * 24 * time.Hour)},
	}
	watchRepo := &fakeWatchRepo{
		watches: map[string]*models.WatchSubscription{
			"user@example.com": {
				UserEmail:  "user@example.com",
				Topic:      "projects/test/topics/gmail-push",
				Expiration: utils.Now().Add(23 * time.Hour),
				Enabled:    true,
			},
		},
	}
	service := newTestService(client, watchRepo, &fakeStateRepo{})

	err := service.RenewIfNeeded(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, client.watchCalls)
	assert.Equal(t, uint64(5000), watchRepo.watches["user@example.com"].HistoryID)
}

func TestRenewIfNeeded_HealthySubscriptionUntouched(t *testing.T) {
	client := &fakeWatchClient{}
	watchRepo := &fakeWatchRepo{
		watches: map[string]*models.WatchSubscription{
			"user@example.com": {
				UserEmail:  "user@example.com",
				Expiration: utils.Now().Add(48 * time.Hour),
				Enabled:    true,
			},
		},
	}
	service := newTestService(client, watchRepo, &fakeStateRepo{})

	err := service.RenewIfNeeded(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, 0, client.watchCalls)
}

func TestRenewIfNeeded_NoSubscriptionIsNoOp(t *testing.T) {
	client := &fakeWatchClient{}
	service := newTestService(client, &fakeWatchRepo{}, &fakeStateRepo{})

	err := service.RenewIfNeeded(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, 0, client.watchCalls)
}

func TestRenewAll_SweepsEveryEnabledSubscription(t *testing.T) {
	client := &fakeWatchClient{
		watchResult: &interfaces.WatchResult{HistoryID: 6000, Expiration: utils.Now().Add(7 * 24 * time.Hour)},
	}
	watchRepo := &fakeWatchRepo{
		watches: map[string]*models.WatchSubscription{
			"due@example.com": {
				UserEmail:  "due@example.com",
				Expiration: utils.Now().Add(1 * time.Hour),
				Enabled:    true,
			},
			"healthy@example.com": {
				UserEmail:  "healthy@example.com",
				Expiration: utils.Now().Add(72 * time.Hour),
				Enabled:    true,
			},
			"disabled@example.com": {
				UserEmail:  "disabled@example.com",
				Expiration: utils.Now().Add(1 * time.Hour),
				Enabled:    false,
			},
		},
	}
	service := newTestService(client, watchRepo, &fakeStateRepo{})

	err := service.RenewAll(context.Background())

	require.NoError(t, err)
	// only the due, enabled subscription triggers a provider call
	assert.Equal(t, 1, client.watchCalls)
}
