package models

import "time"

// Operation describes what a queued mutation does to a key.
type Operation string

const (
	OpSet    Operation = "set"
	OpRemove Operation = "remove"
)

// QueueEntry is one pending local mutation waiting to be pushed to the
// remote document. Entries are deduplicated by key: a later mutation of
// the same key supersedes any queued one.
type QueueEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Key        string    `json:"key"`
	Value      string    `json:"value,omitempty"`
	Op         Operation `json:"op"`
	OriginPage string    `json:"origin_page"`
}

// PrayerStatus is the per-prayer state recorded in the prayer log.
type PrayerStatus string

const (
	StatusCompleted PrayerStatus = "completed"
	StatusQaza      PrayerStatus = "qaza" // performed late / made up
	StatusMissed    PrayerStatus = "missed"
	StatusPending   PrayerStatus = "pending"
)

// statusRank orders prayer statuses for merge resolution.
// Higher rank wins when two devices recorded different statuses
// for the same prayer on the same date.
var statusRank = map[PrayerStatus]int{
	StatusCompleted: 3,
	StatusQaza:      2,
	StatusMissed:    1,
	StatusPending:   0,
}

// StatusRank returns the merge priority of a status. Unknown statuses
// rank below pending so that any recognized value beats them.
func StatusRank(s PrayerStatus) int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}
