package google

import (
	"context"
	"strings"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

// TokenService hands out per-mailbox token managers backed by the stored
// credential rows. Managers are cached so concurrent syncs of the same
// mailbox share one refresh pipeline.
type TokenService struct {
	cfg            *config.GoogleOAuthConfig
	credentialRepo interfaces.CredentialRepository
	log            logger.Logger

	mu       sync.Mutex
	managers map[string]*TokenManager
}

func NewTokenService(cfg *config.GoogleOAuthConfig, credentialRepo interfaces.CredentialRepository, log logger.Logger) *TokenService {
	return &TokenService{
		cfg:            cfg,
		credentialRepo: credentialRepo,
		log:            log,
		managers:       make(map[string]*TokenManager),
	}
}

// ManagerFor returns the token manager for the mailbox, loading the stored
// credential on first use.
func (s *TokenService) ManagerFor(ctx context.Context, userEmail string) (*TokenManager, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TokenService.ManagerFor")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, userEmail)

	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, mailsync_errors.ErrOAuthConfigIncomplete
	}

	s.mu.Lock()
	if manager, ok := s.managers[userEmail]; ok {
		s.mu.Unlock()
		return manager, nil
	}
	s.mu.Unlock()

	credential, err := s.credentialRepo.GetCredential(ctx, userEmail)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	manager := &TokenManager{
		userEmail:      userEmail,
		credentialRepo: s.credentialRepo,
		log:            s.log,
		oauthConfig: &oauth2.Config{
			ClientID:     s.cfg.ClientID,
			ClientSecret: s.cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmailapi.GmailReadonlyScope},
		},
		accessToken:  credential.AccessToken,
		refreshToken: credential.RefreshToken,
	}
	manager.exchange = manager.exchangeWithProvider

	s.mu.Lock()
	// Another goroutine may have raced us here; keep the first one so the
	// single-flight group stays shared.
	if existing, ok := s.managers[userEmail]; ok {
		manager = existing
	} else {
		s.managers[userEmail] = manager
	}
	s.mu.Unlock()

	return manager, nil
}

// TokenManager holds the live token pair for one mailbox. Refresh is
// coalesced: when several fetch workers hit a 401 at once, only one token
// exchange goes out and everyone receives its result.
type TokenManager struct {
	userEmail      string
	oauthConfig    *oauth2.Config
	credentialRepo interfaces.CredentialRepository
	log            logger.Logger

	group singleflight.Group

	// exchange performs the actual token exchange against the provider;
	// swapped out in tests.
	exchange func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func (m *TokenManager) exchangeWithProvider(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (m *TokenManager) ValidToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *TokenManager) doRefresh(ctx context.Context) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TokenManager.doRefresh")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, m.userEmail)

	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		err := mailsync_errors.ErrRefreshTokenRevoked
		tracing.TraceErr(span, err)
		return "", err
	}

	newToken, err := m.exchange(ctx, refreshToken)
	if err != nil {
		if isInvalidGrant(err) {
			tracing.TraceErr(span, mailsync_errors.ErrRefreshTokenRevoked)
			return "", mailsync_errors.ErrRefreshTokenRevoked
		}
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "token refresh failed")
	}

	m.mu.Lock()
	m.accessToken = newToken.AccessToken
	// Google only rotates the refresh token occasionally; keep the old one
	// when the response omits it.
	if newToken.RefreshToken != "" {
		m.refreshToken = newToken.RefreshToken
	}
	m.mu.Unlock()

	refreshedAt := utils.Now()
	if err := m.credentialRepo.SaveTokens(ctx, m.userEmail, newToken.AccessToken, newToken.RefreshToken, refreshedAt); err != nil {
		// The in-memory token is still good; losing the persisted copy only
		// costs an extra refresh after a restart.
		tracing.TraceErr(span, err)
		m.log.Warnf("Failed to persist refreshed tokens for %s: %v", m.userEmail, err)
	}

	m.log.Infof("Refreshed access token for %s", m.userEmail)
	return newToken.AccessToken, nil
}

// isInvalidGrant detects the provider telling us the refresh token itself is
// dead, which no amount of retrying will fix.
func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return true
		}
		return strings.Contains(string(retrieveErr.Body), "invalid_grant")
	}
	return false
}
