package google

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/taskilo/mailsync/config"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/models"
)

type fakeCredentialRepo struct {
	mu          sync.Mutex
	credentials map[string]*models.GmailCredential
	getCalls    int
	saveCalls   int
}

func (f *fakeCredentialRepo) GetCredential(ctx context.Context, userEmail string) (*models.GmailCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	credential, ok := f.credentials[userEmail]
	if !ok {
		return nil, mailsync_errors.ErrCredentialsNotFound
	}
	return credential, nil
}

func (f *fakeCredentialRepo) SaveCredential(ctx context.Context, credential *models.GmailCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credentials == nil {
		f.credentials = make(map[string]*models.GmailCredential)
	}
	f.credentials[credential.UserEmail] = credential
	return nil
}

func (f *fakeCredentialRepo) SaveTokens(ctx context.Context, userEmail, accessToken, refreshToken string, refreshedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	return nil
}

func (f *fakeCredentialRepo) ListUserEmails(ctx context.Context) ([]string, error) {
	return nil, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func oauthTestConfig() *config.GoogleOAuthConfig {
	return &config.GoogleOAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func TestManagerFor_LoadsStoredCredential(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {
				UserEmail:    "user@example.com",
				AccessToken:  "stored-access",
				RefreshToken: "stored-refresh",
			},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())

	manager, err := service.ManagerFor(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, "stored-access", manager.ValidToken())
}

func TestManagerFor_CachesManagers(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {UserEmail: "user@example.com", AccessToken: "a", RefreshToken: "r"},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())

	first, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)
	second, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.getCalls)
}

func TestManagerFor_MissingCredential(t *testing.T) {
	service := NewTokenService(oauthTestConfig(), &fakeCredentialRepo{}, getLogger())

	_, err := service.ManagerFor(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, mailsync_errors.ErrCredentialsNotFound)
}

func TestManagerFor_IncompleteOAuthConfig(t *testing.T) {
	service := NewTokenService(&config.GoogleOAuthConfig{}, &fakeCredentialRepo{}, getLogger())

	_, err := service.ManagerFor(context.Background(), "user@example.com")

	assert.ErrorIs(t, err, mailsync_errors.ErrOAuthConfigIncomplete)
}

func TestRefresh_EmptyRefreshTokenIsRevoked(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {UserEmail: "user@example.com", AccessToken: "a", RefreshToken: ""},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())
	manager, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)

	_, err = manager.Refresh(context.Background())

	assert.ErrorIs(t, err, mailsync_errors.ErrRefreshTokenRevoked)
	assert.Equal(t, 0, repo.saveCalls)
}

func TestRefresh_ConcurrentCallersShareOneOutcome(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {UserEmail: "user@example.com", AccessToken: "a", RefreshToken: ""},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())
	manager, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = manager.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range results {
		assert.ErrorIs(t, err, mailsync_errors.ErrRefreshTokenRevoked)
	}
}

func TestRefresh_ConcurrentCallersShareOneExchange(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {UserEmail: "user@example.com", AccessToken: "stale", RefreshToken: "refresh"},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())
	manager, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)

	var exchangeCalls int32
	gate := make(chan struct{})
	manager.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		atomic.AddInt32(&exchangeCalls, 1)
		<-gate
		return &oauth2.Token{AccessToken: "fresh-access"}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			tokens[idx], results[idx] = manager.Refresh(context.Background())
		}(i)
	}
	// Let every caller reach the in-flight refresh before it completes.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&exchangeCalls))
	for i := 0; i < callers; i++ {
		assert.NoError(t, results[i])
		assert.Equal(t, "fresh-access", tokens[i])
	}
	assert.Equal(t, "fresh-access", manager.ValidToken())
	assert.Equal(t, 1, repo.saveCalls)
}

func TestRefresh_InvalidGrantMapsToRevoked(t *testing.T) {
	repo := &fakeCredentialRepo{
		credentials: map[string]*models.GmailCredential{
			"user@example.com": {UserEmail: "user@example.com", AccessToken: "stale", RefreshToken: "refresh"},
		},
	}
	service := NewTokenService(oauthTestConfig(), repo, getLogger())
	manager, err := service.ManagerFor(context.Background(), "user@example.com")
	require.NoError(t, err)

	manager.exchange = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}

	_, err = manager.Refresh(context.Background())

	assert.ErrorIs(t, err, mailsync_errors.ErrRefreshTokenRevoked)
	assert.Equal(t, "stale", manager.ValidToken())
	assert.Equal(t, 0, repo.saveCalls)
}

func TestIsInvalidGrant(t *testing.T) {
	assert.True(t, isInvalidGrant(&oauth2.RetrieveError{ErrorCode: "invalid_grant"}))
	assert.True(t, isInvalidGrant(&oauth2.RetrieveError{Body: []byte(`{"error":"invalid_grant"}`)}))
	assert.False(t, isInvalidGrant(&oauth2.RetrieveError{ErrorCode: "server_error"}))
	assert.False(t, isInvalidGrant(errors.New("network down")))
}
