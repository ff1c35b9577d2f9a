package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/taskilo/mailsync/api/handlers"
	"github.com/taskilo/mailsync/api/middleware"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/repository"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, log logger.Logger, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	// Gmail watch push deliveries arrive from Cloud Pub/Sub, not from API
	// clients, so they sit outside the keyed group.
	r.POST("/notifications/gmail", handlers.GmailNotification(s.SyncService, log))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILSYNC-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware())
	{
		// Mailbox endpoints
		mailboxes := api.Group("/mailboxes")
		{
			mailboxes.POST("/:email/sync", handlers.SyncMailbox(s.SyncService))
			mailboxes.POST("/:email/sync/force", handlers.ForceSyncMailbox(s.SyncService))
			mailboxes.POST("/:email/watch", handlers.RegisterWatch(s.WatchService))
			mailboxes.POST("/:email/watch/renew", handlers.RenewWatch(s.WatchService))
			mailboxes.GET("/:email/emails/count", handlers.CountEmails(repos.EmailRepository))
		}

		// Watch sweep across all mailboxes
		api.POST("/watches/renew", handlers.RenewAllWatches(s.WatchService))

		// Credential onboarding
		api.POST("/credentials", handlers.UpsertCredential(repos.CredentialRepository))

		// Email endpoints
		emails := api.Group("/emails")
		{
			emails.GET("/:id", handlers.GetEmail(repos.EmailRepository))
		}
	}
}
