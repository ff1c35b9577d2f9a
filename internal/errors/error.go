package errors

import "github.com/pkg/errors"

var (
	// credential errors
	ErrCredentialsNotFound   = errors.New("gmail credentials not found")
	ErrRefreshTokenRevoked   = errors.New("refresh token revoked")
	ErrOAuthConfigIncomplete = errors.New("google oauth client credentials not configured")

	// sync errors
	ErrHistoryExpired  = errors.New("history cursor expired")
	ErrMessageNotFound = errors.New("message not found")

	// watch errors
	ErrWatchTopicMissing = errors.New("pubsub topic not configured")
)
