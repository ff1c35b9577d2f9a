package utils

import (
	"context"

	"github.com/taskilo/mailsync/internal/enum"
)

type contextKey string

const syncTriggerContextKey contextKey = "syncTrigger"

func WithSyncTrigger(ctx context.Context, trigger enum.SyncTrigger) context.Context {
	return context.WithValue(ctx, syncTriggerContextKey, trigger)
}

// GetSyncTriggerFromContext defaults to the API trigger when none was set.
func GetSyncTriggerFromContext(ctx context.Context) enum.SyncTrigger {
	if trigger, ok := ctx.Value(syncTriggerContextKey).(enum.SyncTrigger); ok {
		return trigger
	}
	return enum.SyncTriggerAPI
}
