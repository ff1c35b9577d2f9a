package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskilo/mailsync/dto"
	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/enum"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

// GmailNotification handles Cloud Pub/Sub push deliveries from the Gmail
// watch subscription. Malformed envelopes get a 400 so Pub/Sub stops
// redelivering them; sync failures still ack, the next notification or
// scheduled pass will catch up.
func GmailNotification(syncService interfaces.SyncService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GmailNotification", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var envelope dto.PubSubPushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		notification, err := envelope.DecodeNotification()
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tracing.TagMailbox(span, notification.EmailAddress)
		span.SetTag(tracing.SpanTagHistoryId, notification.HistoryID)

		ctx = utils.WithSyncTrigger(ctx, enum.SyncTriggerPush)
		emails, err := syncService.Sync(ctx, notification.EmailAddress)
		if err != nil {
			tracing.TraceErr(span, err)
			log.Errorf("[GmailNotification] sync failed for %s: %v", notification.EmailAddress, err)
			// Ack anyway: redelivering the same notification cannot fix a
			// missing credential.
			c.JSON(http.StatusOK, gin.H{"synced": 0})
			return
		}

		c.JSON(http.StatusOK, gin.H{"synced": len(emails)})
	}
}
