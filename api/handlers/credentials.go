package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/tracing"
)

type upsertCredentialRequest struct {
	UserEmail    string     `json:"userEmail" binding:"required"`
	AccessToken  string     `json:"accessToken" binding:"required"`
	RefreshToken string     `json:"refreshToken" binding:"required"`
	TokenExpiry  *time.Time `json:"tokenExpiry"`
}

// UpsertCredential stores or replaces the OAuth token pair for a mailbox.
// This is how a mailbox gets onboarded into the sync engine.
func UpsertCredential(credentialRepo interfaces.CredentialRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UpsertCredential", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request upsertCredentialRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userEmail := strings.ToLower(strings.TrimSpace(request.UserEmail))
		tracing.TagMailbox(span, userEmail)

		credential := &models.GmailCredential{
			UserEmail:    userEmail,
			AccessToken:  request.AccessToken,
			RefreshToken: request.RefreshToken,
			TokenExpiry:  request.TokenExpiry,
		}
		if err := credentialRepo.SaveCredential(ctx, credential); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"userEmail": userEmail, "saved": true})
	}
}
