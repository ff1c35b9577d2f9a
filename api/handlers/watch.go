package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/tracing"
)

// RegisterWatch creates or overwrites the push subscription for the mailbox.
func RegisterWatch(watchService interfaces.WatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RegisterWatch", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		userEmail := c.Param("email")
		tracing.TagMailbox(span, userEmail)

		if err := watchService.Register(ctx, userEmail); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(syncErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"userEmail": userEmail, "registered": true})
	}
}

// RenewWatch re-registers the subscription when it is close to expiring.
func RenewWatch(watchService interfaces.WatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RenewWatch", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		userEmail := c.Param("email")
		tracing.TagMailbox(span, userEmail)

		if err := watchService.RenewIfNeeded(ctx, userEmail); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(syncErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"userEmail": userEmail, "checked": true})
	}
}

// RenewAllWatches sweeps every enabled subscription.
func RenewAllWatches(watchService interfaces.WatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "RenewAllWatches", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		if err := watchService.RenewAll(ctx); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"renewed": true})
	}
}
