package dto

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// PubSubPushEnvelope is the body Google Cloud Pub/Sub POSTs to a push
// endpoint. The interesting payload is base64 JSON inside Message.Data.
type PubSubPushEnvelope struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription"`
}

type PubSubMessage struct {
	Data        string `json:"data"`
	MessageID   string `json:"messageId"`
	PublishTime string `json:"publishTime"`
}

// GmailNotification is the decoded Gmail watch notification.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// DecodeNotification unwraps the push envelope into a GmailNotification.
func (e *PubSubPushEnvelope) DecodeNotification() (*GmailNotification, error) {
	if e.Message.Data == "" {
		return nil, errors.New("pubsub message has no data")
	}

	raw, err := base64.StdEncoding.DecodeString(e.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode pubsub message data")
	}

	var notification GmailNotification
	if err := json.Unmarshal(raw, &notification); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal gmail notification")
	}

	if notification.EmailAddress == "" {
		return nil, errors.New("gmail notification has no email address")
	}

	return &notification, nil
}
