package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/taskilo/mailsync/internal/tracing"
)

// TracingMiddleware creates a new span for each request and adds common tags
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(
			c.Request.Context(),
			c.Request.Method+" "+c.FullPath(),
			c.Request.Header,
		)
		defer span.Finish()

		tracing.TagComponentRest(span)

		// Tag the mailbox when the route carries one
		if email := c.Param("email"); email != "" {
			tracing.TagMailbox(span, email)
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if status := c.Writer.Status(); status >= 400 {
			tracing.TraceErr(span, errors.Errorf("http status %d", status), log.Int("http.status_code", status))
		}
	}
}
