package redisx

import "time"

const (
	// Whole-state snapshot: snapshot:{key} -> JSON state
	KeySnapshot = "snapshot:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Per-user notification feed, newest first: notifications:{user_id}
	KeyNotifications = "notifications:%s"
)

var (
	TTLDedup = 48 * time.Hour

	// FeedSize caps each notification list.
	FeedSize int64 = 50
)
