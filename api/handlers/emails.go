package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/tracing"
)

// GetEmail returns one synced email with its attachment metadata.
func GetEmail(emailRepo interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetEmail", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		span.SetTag(tracing.SpanTagMessageId, id)

		email, err := emailRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, mailsync_errors.ErrMessageNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, email)
	}
}

// CountEmails reports how many emails have been synced for a mailbox.
func CountEmails(emailRepo interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "CountEmails", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		userEmail := c.Param("email")
		tracing.TagMailbox(span, userEmail)

		count, err := emailRepo.CountByMailbox(ctx, userEmail)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"userEmail": userEmail, "count": count})
	}
}
