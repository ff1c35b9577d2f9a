package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskilo/mailsync/internal/enum"
)

func TestEmailRecordID(t *testing.T) {
	assert.Equal(t, "user@example.com_abc123", EmailRecordID("user@example.com", "abc123"))
	// mailbox casing must not fork ids
	assert.Equal(t, EmailRecordID("User@Example.COM", "abc123"), EmailRecordID("user@example.com", "abc123"))
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("atch", 24)
	assert.True(t, strings.HasPrefix(id, "atch_"))
	assert.Len(t, id, len("atch_")+24)

	other := GenerateNanoIDWithPrefix("atch", 24)
	assert.NotEqual(t, id, other)
}

func TestSplitAddressList(t *testing.T) {
	assert.Nil(t, SplitAddressList(""))
	assert.Nil(t, SplitAddressList("   "))
	assert.Equal(t, []string{"a@x.com"}, SplitAddressList("a@x.com"))
	assert.Equal(t,
		[]string{"a@x.com", "Bob <b@y.com>"},
		SplitAddressList(" a@x.com ,  Bob <b@y.com> , "),
	)
}

func TestContainsLabel(t *testing.T) {
	labels := []string{"INBOX", "UNREAD"}
	assert.True(t, ContainsLabel(labels, "UNREAD"))
	assert.False(t, ContainsLabel(labels, "STARRED"))
	assert.False(t, ContainsLabel(nil, "INBOX"))
}

func TestUnixMillisToTime(t *testing.T) {
	ts := UnixMillisToTime(1735689600000)
	assert.Equal(t, int64(1735689600), ts.Unix())
	assert.Equal(t, "UTC", ts.Location().String())
}

func TestSyncTriggerContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, enum.SyncTriggerAPI, GetSyncTriggerFromContext(ctx))

	ctx = WithSyncTrigger(ctx, enum.SyncTriggerPush)
	assert.Equal(t, enum.SyncTriggerPush, GetSyncTriggerFromContext(ctx))
}
