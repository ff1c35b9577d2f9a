package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/taskilo/mailsync/internal/enum"
	"github.com/taskilo/mailsync/internal/models"
	"github.com/taskilo/mailsync/internal/utils"
)

// maxPartDepth caps recursion over the MIME part tree. Real messages nest a
// handful of levels; anything deeper is malformed.
const maxPartDepth = 100

const (
	labelUnread  = "UNREAD"
	labelStarred = "STARRED"
)

// DecodeMessage normalizes a full-format Gmail message into an Email row.
// It is pure: no network, no storage.
func DecodeMessage(userEmail string, message *gmailapi.Message) (*models.Email, error) {
	if message == nil || message.Payload == nil {
		return nil, errors.New("message has no payload")
	}

	headers := headerMap(message.Payload.Headers)

	email := &models.Email{
		ID:           utils.EmailRecordID(userEmail, message.Id),
		UserEmail:    userEmail,
		GmailID:      message.Id,
		ThreadID:     message.ThreadId,
		From:         headers["from"],
		ToAddresses:  utils.SplitAddressList(headers["to"]),
		CcAddresses:  utils.SplitAddressList(headers["cc"]),
		BccAddresses: utils.SplitAddressList(headers["bcc"]),
		Subject:      headers["subject"],
		InternalDate: message.InternalDate,
		Labels:       message.LabelIds,
		Read:         !utils.ContainsLabel(message.LabelIds, labelUnread),
		Starred:      utils.ContainsLabel(message.LabelIds, labelStarred),
		Priority:     classifyPriority(headers),
	}

	if message.InternalDate > 0 {
		receivedAt := utils.UnixMillisToTime(message.InternalDate)
		email.ReceivedAt = &receivedAt
	}

	bodyText, bodyHTML := extractBody(message.Payload)
	email.BodyText = bodyText
	email.BodyHTML = bodyHTML

	// A message with no decodable text part still gets a readable body.
	if email.BodyText == "" && email.BodyHTML == "" {
		email.BodyText = message.Snippet
	}

	email.Attachments = extractAttachments(email.ID, message.Payload, 0)

	return email, nil
}

func headerMap(headers []*gmailapi.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if _, ok := m[key]; !ok {
			m[key] = h.Value
		}
	}
	return m
}

// extractBody picks the message body out of the part tree. Multipart
// messages are walked depth first and the first text/plain and first
// text/html parts win; single-part messages carry the body at the top level.
func extractBody(payload *gmailapi.MessagePart) (bodyText, bodyHTML string) {
	if len(payload.Parts) > 0 {
		return extractBodyFromParts(payload.Parts, 0)
	}

	data := decodePartData(payload)
	switch {
	case strings.HasPrefix(payload.MimeType, "text/plain"):
		return data, ""
	case strings.HasPrefix(payload.MimeType, "text/html"):
		return "", data
	}
	return "", ""
}

func extractBodyFromParts(parts []*gmailapi.MessagePart, depth int) (bodyText, bodyHTML string) {
	if depth > maxPartDepth {
		return "", ""
	}

	for _, part := range parts {
		if bodyText == "" && strings.HasPrefix(part.MimeType, "text/plain") && part.Filename == "" {
			bodyText = decodePartData(part)
		}
		if bodyHTML == "" && strings.HasPrefix(part.MimeType, "text/html") && part.Filename == "" {
			bodyHTML = decodePartData(part)
		}

		if len(part.Parts) > 0 {
			nestedText, nestedHTML := extractBodyFromParts(part.Parts, depth+1)
			if bodyText == "" {
				bodyText = nestedText
			}
			if bodyHTML == "" {
				bodyHTML = nestedHTML
			}
		}

		if bodyText != "" && bodyHTML != "" {
			return bodyText, bodyHTML
		}
	}

	return bodyText, bodyHTML
}

// extractAttachments collects attachment metadata from every level of the
// part tree. A part counts as an attachment when it carries a filename and a
// provider attachment id.
func extractAttachments(emailID string, payload *gmailapi.MessagePart, depth int) []models.EmailAttachment {
	if depth > maxPartDepth {
		return nil
	}

	var attachments []models.EmailAttachment
	for _, part := range payload.Parts {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			attachments = append(attachments, models.EmailAttachment{
				EmailID:           emailID,
				GmailAttachmentID: part.Body.AttachmentId,
				Filename:          part.Filename,
				MimeType:          part.MimeType,
				Size:              part.Body.Size,
			})
		}
		if len(part.Parts) > 0 {
			attachments = append(attachments, extractAttachments(emailID, part, depth+1)...)
		}
	}
	return attachments
}

// decodePartData decodes Gmail's web-safe base64 body data. Undecodable data
// yields an empty string rather than an error; the snippet fallback covers it.
func decodePartData(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).
		DecodeString(strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

// classifyPriority maps the common priority headers onto a three-level
// scale. Absent or unrecognized headers mean normal.
func classifyPriority(headers map[string]string) enum.EmailPriority {
	if p := headers["x-priority"]; p != "" {
		switch {
		case strings.HasPrefix(p, "1"), strings.HasPrefix(p, "2"):
			return enum.EmailPriorityHigh
		case strings.HasPrefix(p, "4"), strings.HasPrefix(p, "5"):
			return enum.EmailPriorityLow
		}
	}

	switch strings.ToLower(headers["importance"]) {
	case "high":
		return enum.EmailPriorityHigh
	case "low":
		return enum.EmailPriorityLow
	}

	return enum.EmailPriorityNormal
}
