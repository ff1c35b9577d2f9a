package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracedRouter(t *testing.T) (*gin.Engine, *mocktracer.MockTracer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	t.Cleanup(func() {
		opentracing.SetGlobalTracer(previous)
	})

	r := gin.New()
	r.Use(TracingMiddleware())
	return r, tracer
}

func TestTracingMiddleware_SuccessLeavesSpanClean(t *testing.T) {
	r, tracer := tracedRouter(t)
	r.GET("/v1/mailboxes/:email/emails", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"total": 0})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/mailboxes/user@example.com/emails", nil)
	r.ServeHTTP(w, req)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Nil(t, spans[0].Tag("error"))
	assert.Equal(t, "user@example.com", spans[0].Tag("mailbox"))
}

func TestTracingMiddleware_ErrorStatusMarksSpanErrored(t *testing.T) {
	r, tracer := tracedRouter(t)
	r.GET("/v1/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/boom", nil)
	r.ServeHTTP(w, req)

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, true, spans[0].Tag("error"))
}
