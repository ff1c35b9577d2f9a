package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/enum"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

// SyncMailbox runs one sync pass for the mailbox in the path.
func SyncMailbox(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SyncMailbox", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		userEmail := c.Param("email")
		tracing.TagMailbox(span, userEmail)

		ctx = utils.WithSyncTrigger(ctx, enum.SyncTriggerAPI)
		emails, err := syncService.Sync(ctx, userEmail)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(syncErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"userEmail": userEmail,
			"synced":    len(emails),
			"emails":    emails,
		})
	}
}

// ForceSyncMailbox re-reads recent messages regardless of the history cursor.
func ForceSyncMailbox(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ForceSyncMailbox", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		userEmail := c.Param("email")
		tracing.TagMailbox(span, userEmail)

		ctx = utils.WithSyncTrigger(ctx, enum.SyncTriggerForce)
		emails, err := syncService.ForceSync(ctx, userEmail)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(syncErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"userEmail": userEmail,
			"synced":    len(emails),
			"emails":    emails,
		})
	}
}

func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, mailsync_errors.ErrCredentialsNotFound):
		return http.StatusNotFound
	case errors.Is(err, mailsync_errors.ErrRefreshTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, mailsync_errors.ErrOAuthConfigIncomplete),
		errors.Is(err, mailsync_errors.ErrWatchTopicMissing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
