package interfaces

import (
	"context"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

// TokenProvider supplies a currently valid access token for one mailbox and
// performs coalesced refreshes when the provider rejects it.
type TokenProvider interface {
	// ValidToken returns the current access token without side effects.
	ValidToken() string
	// Refresh exchanges the refresh token for a new access token. Concurrent
	// callers share a single exchange against the identity provider.
	Refresh(ctx context.Context) (string, error)
}

// WatchResult is the provider's answer to a subscription registration.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

// GmailClient is the remote-read surface of the Gmail API used by the sync
// engine. Implementations wrap every call in the shared retry policy.
type GmailClient interface {
	// ListHistory returns the ids of messages added since startHistoryID,
	// plus the latest history id observed.
	ListHistory(ctx context.Context, startHistoryID uint64) ([]string, uint64, error)
	// ListRecent lists message ids within the lookback window, newest first,
	// capped at maxResults. It never consults the history cursor.
	ListRecent(ctx context.Context, lookback time.Duration, maxResults int64) ([]string, error)
	// ListAll lists message ids with no date bound, capped at maxResults.
	ListAll(ctx context.Context, maxResults int64) ([]string, error)
	GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error)
	Watch(ctx context.Context, topic string, labelIDs []string) (*WatchResult, error)
}

// GmailClientFactory builds a GmailClient bound to one mailbox's credentials.
type GmailClientFactory interface {
	ClientFor(ctx context.Context, userEmail string) (GmailClient, error)
}
