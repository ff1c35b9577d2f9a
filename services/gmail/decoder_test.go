package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/taskilo/mailsync/internal/enum"
)

func encodeBody(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func textPart(mimeType, body string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		MimeType: mimeType,
		Body:     &gmailapi.MessagePartBody{Data: encodeBody(body)},
	}
}

func TestDecodeMessage_SimpleTextMessage(t *testing.T) {
	// Arrange
	message := &gmailapi.Message{
		Id:           "msg123",
		ThreadId:     "thread123",
		InternalDate: 1735689600000,
		LabelIds:     []string{"INBOX", "UNREAD"},
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "sender@example.com"},
				{Name: "To", Value: "alice@example.com, Bob <bob@example.com>"},
				{Name: "Subject", Value: "Hello"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody("plain body")},
		},
	}

	// Act
	email, err := DecodeMessage("User@Example.com", message)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user@example.com_msg123", email.ID)
	assert.Equal(t, "msg123", email.GmailID)
	assert.Equal(t, "thread123", email.ThreadID)
	assert.Equal(t, "sender@example.com", email.From)
	assert.Equal(t, []string{"alice@example.com", "Bob <bob@example.com>"}, []string(email.ToAddresses))
	assert.Equal(t, "Hello", email.Subject)
	assert.Equal(t, "plain body", email.BodyText)
	assert.Empty(t, email.BodyHTML)
	assert.Equal(t, int64(1735689600000), email.InternalDate)
	assert.False(t, email.Read)
	assert.False(t, email.Starred)
	assert.Equal(t, enum.EmailPriorityNormal, email.Priority)
	require.NotNil(t, email.ReceivedAt)
	assert.Equal(t, int64(1735689600), email.ReceivedAt.Unix())
}

func TestDecodeMessage_FirstTextPartsWinInNestedTree(t *testing.T) {
	// multipart/mixed > multipart/alternative > (text/plain, text/html),
	// with later siblings that must not override the first hits
	message := &gmailapi.Message{
		Id: "msg456",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "multipart/related",
							Parts: []*gmailapi.MessagePart{
								textPart("text/plain", "first plain"),
								textPart("text/html", "<p>first html</p>"),
							},
						},
						textPart("text/plain", "second plain"),
					},
				},
				textPart("text/html", "<p>second html</p>"),
			},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	assert.Equal(t, "first plain", email.BodyText)
	assert.Equal(t, "<p>first html</p>", email.BodyHTML)
}

func TestDecodeMessage_AttachmentsCollectedAtAnyDepth(t *testing.T) {
	message := &gmailapi.Message{
		Id: "msg789",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				textPart("text/plain", "body"),
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1", Size: 2048},
				},
				{
					MimeType: "multipart/related",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "image/png",
							Filename: "chart.png",
							Body:     &gmailapi.MessagePartBody{AttachmentId: "att-2"},
						},
					},
				},
			},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	require.Len(t, email.Attachments, 2)
	assert.Equal(t, "report.pdf", email.Attachments[0].Filename)
	assert.Equal(t, "att-1", email.Attachments[0].GmailAttachmentID)
	assert.Equal(t, int64(2048), email.Attachments[0].Size)
	assert.Equal(t, "chart.png", email.Attachments[1].Filename)
	assert.Equal(t, "att-2", email.Attachments[1].GmailAttachmentID)
	assert.Equal(t, int64(0), email.Attachments[1].Size)
	assert.Equal(t, email.ID, email.Attachments[0].EmailID)
}

func TestDecodeMessage_NamedTextPartIsNotBody(t *testing.T) {
	// A text/plain part carrying a filename is an attachment, not the body
	message := &gmailapi.Message{
		Id:      "msg-log",
		Snippet: "snippet text",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Filename: "server.log",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-log", Data: encodeBody("log contents")},
				},
			},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	assert.Equal(t, "snippet text", email.BodyText)
	require.Len(t, email.Attachments, 1)
}

func TestDecodeMessage_SnippetFallbackWhenNoTextParts(t *testing.T) {
	message := &gmailapi.Message{
		Id:      "msg-img",
		Snippet: "an image only message",
		Payload: &gmailapi.MessagePart{
			MimeType: "image/jpeg",
			Body:     &gmailapi.MessagePartBody{AttachmentId: "att-x"},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	assert.Equal(t, "an image only message", email.BodyText)
	assert.Empty(t, email.BodyHTML)
}

func TestDecodeMessage_UndecodableBodyFallsBackToSnippet(t *testing.T) {
	message := &gmailapi.Message{
		Id:      "msg-bad",
		Snippet: "snippet wins",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: "!!! not base64 !!!"},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	assert.Equal(t, "snippet wins", email.BodyText)
}

func TestDecodeMessage_NilPayload(t *testing.T) {
	_, err := DecodeMessage("user@example.com", &gmailapi.Message{Id: "x"})
	assert.Error(t, err)
}

func TestDecodeMessage_ReadAndStarredFromLabels(t *testing.T) {
	message := &gmailapi.Message{
		Id:       "msg-labels",
		LabelIds: []string{"INBOX", "STARRED"},
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: encodeBody("hi")},
		},
	}

	email, err := DecodeMessage("user@example.com", message)

	require.NoError(t, err)
	assert.True(t, email.Read)
	assert.True(t, email.Starred)
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected enum.EmailPriority
	}{
		{"x-priority 1", map[string]string{"x-priority": "1 (Highest)"}, enum.EmailPriorityHigh},
		{"x-priority 2", map[string]string{"x-priority": "2"}, enum.EmailPriorityHigh},
		{"x-priority 3", map[string]string{"x-priority": "3"}, enum.EmailPriorityNormal},
		{"x-priority 5", map[string]string{"x-priority": "5 (Lowest)"}, enum.EmailPriorityLow},
		{"importance high", map[string]string{"importance": "High"}, enum.EmailPriorityHigh},
		{"importance low", map[string]string{"importance": "low"}, enum.EmailPriorityLow},
		{"no headers", map[string]string{}, enum.EmailPriorityNormal},
		{"x-priority beats importance", map[string]string{"x-priority": "1", "importance": "low"}, enum.EmailPriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyPriority(tt.headers))
		})
	}
}
