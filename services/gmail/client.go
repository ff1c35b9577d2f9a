package gmail

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	mailsync_errors "github.com/taskilo/mailsync/internal/errors"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

const gmailUser = "me"

type gmailClient struct {
	userEmail string
	tokens    interfaces.TokenProvider
	cfg       *config.SyncConfig
	log       logger.Logger
}

func NewGmailClient(userEmail string, tokens interfaces.TokenProvider, cfg *config.SyncConfig, log logger.Logger) interfaces.GmailClient {
	return &gmailClient{
		userEmail: userEmail,
		tokens:    tokens,
		cfg:       cfg,
		log:       log,
	}
}

// service builds a Gmail API client around the current access token. A fresh
// service per call makes refreshed tokens take effect immediately.
func (c *gmailClient) service(ctx context.Context) (*gmailapi.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.tokens.ValidToken()})
	service, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gmail service")
	}
	return service, nil
}

func (c *gmailClient) requestTimeout() time.Duration {
	return time.Duration(c.cfg.RequestTimeoutSec) * time.Second
}

func (c *gmailClient) ListHistory(ctx context.Context, startHistoryID uint64) ([]string, uint64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailClient.ListHistory")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, c.userEmail)
	span.SetTag(tracing.SpanTagHistoryId, startHistoryID)

	var messageIDs []string
	var latestHistoryID uint64

	err := c.withRetry(ctx, "ListHistory", func(callCtx context.Context) error {
		service, err := c.service(callCtx)
		if err != nil {
			return err
		}

		messageIDs = messageIDs[:0]
		latestHistoryID = 0
		seen := make(map[string]struct{})

		pageToken := ""
		for {
			call := service.Users.History.List(gmailUser).
				StartHistoryId(startHistoryID).
				HistoryTypes("messageAdded").
				MaxResults(c.cfg.HistoryPageSize).
				Context(callCtx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				return err
			}

			if resp.HistoryId > latestHistoryID {
				latestHistoryID = resp.HistoryId
			}
			for _, history := range resp.History {
				for _, added := range history.MessagesAdded {
					if added.Message == nil {
						continue
					}
					if _, ok := seen[added.Message.Id]; ok {
						continue
					}
					seen[added.Message.Id] = struct{}{}
					messageIDs = append(messageIDs, added.Message.Id)
				}
			}

			if resp.NextPageToken == "" {
				break
			}
			pageToken = resp.NextPageToken
		}
		return nil
	})
	if err != nil {
		// Gmail answers 404 when the cursor is older than its retention
		// window; the caller falls back to a date-bounded listing.
		if statusCode(err) == 404 {
			tracing.TraceErr(span, mailsync_errors.ErrHistoryExpired)
			return nil, 0, mailsync_errors.ErrHistoryExpired
		}
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	span.LogKV("result.messageCount", len(messageIDs), "result.latestHistoryId", latestHistoryID)
	return messageIDs, latestHistoryID, nil
}

func (c *gmailClient) ListRecent(ctx context.Context, lookback time.Duration, maxResults int64) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailClient.ListRecent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, c.userEmail)

	after := utils.Now().Add(-lookback)
	query := fmt.Sprintf("after:%s", after.Format("2006/01/02"))
	span.LogKV("query", query)

	return c.listMessages(ctx, span, query, maxResults)
}

func (c *gmailClient) ListAll(ctx context.Context, maxResults int64) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailClient.ListAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, c.userEmail)

	return c.listMessages(ctx, span, "", maxResults)
}

func (c *gmailClient) listMessages(ctx context.Context, span opentracing.Span, query string, maxResults int64) ([]string, error) {
	var messageIDs []string

	err := c.withRetry(ctx, "ListMessages", func(callCtx context.Context) error {
		service, err := c.service(callCtx)
		if err != nil {
			return err
		}

		messageIDs = messageIDs[:0]
		pageToken := ""
		for int64(len(messageIDs)) < maxResults {
			call := service.Users.Messages.List(gmailUser).
				MaxResults(maxResults - int64(len(messageIDs))).
				Context(callCtx)
			if query != "" {
				call = call.Q(query)
			}
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				return err
			}

			for _, message := range resp.Messages {
				messageIDs = append(messageIDs, message.Id)
			}

			if resp.NextPageToken == "" {
				break
			}
			pageToken = resp.NextPageToken
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogKV("result.messageCount", len(messageIDs))
	return messageIDs, nil
}

func (c *gmailClient) GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailClient.GetMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, c.userEmail)
	span.SetTag(tracing.SpanTagMessageId, messageID)

	var message *gmailapi.Message
	err := c.withRetry(ctx, "GetMessage", func(callCtx context.Context) error {
		service, err := c.service(callCtx)
		if err != nil {
			return err
		}
		message, err = service.Users.Messages.Get(gmailUser, messageID).
			Format("full").
			Context(callCtx).
			Do()
		return err
	})
	if err != nil {
		if statusCode(err) == 404 {
			tracing.TraceErr(span, mailsync_errors.ErrMessageNotFound)
			return nil, mailsync_errors.ErrMessageNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return message, nil
}

func (c *gmailClient) Watch(ctx context.Context, topic string, labelIDs []string) (*interfaces.WatchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "gmailClient.Watch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, c.userEmail)
	span.LogKV("topic", topic)

	request := &gmailapi.WatchRequest{
		TopicName:         topic,
		LabelIds:          labelIDs,
		LabelFilterAction: "include",
	}

	var resp *gmailapi.WatchResponse
	err := c.withRetry(ctx, "Watch", func(callCtx context.Context) error {
		service, err := c.service(callCtx)
		if err != nil {
			return err
		}
		resp, err = service.Users.Watch(gmailUser, request).Context(callCtx).Do()
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := &interfaces.WatchResult{
		HistoryID:  resp.HistoryId,
		Expiration: utils.UnixMillisToTime(resp.Expiration),
	}
	span.LogKV("result.historyId", result.HistoryID, "result.expiration", result.Expiration)
	return result, nil
}
