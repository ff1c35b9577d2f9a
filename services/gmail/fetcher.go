package gmail

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

// withRetry runs one Gmail API call under the shared retry policy:
//   - a 401 triggers a token refresh and an immediate retry that does not
//     consume an attempt; a second 401 right after a successful refresh means
//     the credential is dead and the call fails
//   - 400 and 404 are not retried, the request itself is wrong
//   - anything else (429, 5xx, network) backs off linearly and retries until
//     the attempt budget runs out
//
// Each individual call runs under its own timeout so one hung request cannot
// stall a whole sync pass.
func (c *gmailClient) withRetry(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	var lastErr error
	refreshed := false

	for attempt := 1; attempt <= c.cfg.FetchMaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout())
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if isAuthError(err) {
			if refreshed {
				return errors.Wrapf(err, "%s still unauthorized after token refresh", operation)
			}
			if _, refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
				return refreshErr
			}
			refreshed = true
			// The refresh pass does not count against the attempt budget.
			attempt--
			continue
		}

		if isPermanentError(err) {
			return err
		}

		if attempt < c.cfg.FetchMaxAttempts {
			delay := time.Duration(c.cfg.FetchBaseDelayMs*attempt) * time.Millisecond
			c.log.Warnf("[%s] attempt %d/%d for %s failed: %v, retrying in %v",
				operation, attempt, c.cfg.FetchMaxAttempts, c.userEmail, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return errors.Wrapf(lastErr, "%s failed after %d attempts", operation, c.cfg.FetchMaxAttempts)
}

// authErrorMarkers are the substrings Google surfaces in token errors that
// arrive as plain transport errors instead of a structured 401.
var authErrorMarkers = []string{"invalid_grant", "invalid_token", "unauthorized"}

func isAuthError(err error) bool {
	if statusCode(err) == 401 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isPermanentError(err error) bool {
	code := statusCode(err)
	return code == 400 || code == 404
}

func statusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
