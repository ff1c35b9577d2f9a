package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// UnixMillisToTime converts Gmail's epoch-millisecond timestamps.
func UnixMillisToTime(millis int64) time.Time {
	return time.Unix(0, millis*int64(time.Millisecond)).UTC()
}
