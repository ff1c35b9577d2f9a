package enum

type SyncTrigger string

const (
	SyncTriggerPush      SyncTrigger = "push"
	SyncTriggerAPI       SyncTrigger = "api"
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerForce     SyncTrigger = "force"
)

func (s SyncTrigger) String() string {
	return string(s)
}
