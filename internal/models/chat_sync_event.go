package models

import "time"

// Chat sync operations recorded in the ledger.
const (
	SyncOpUpsertUser    = "upsert_user"
	SyncOpCreateChannel = "create_channel"
	SyncOpAddMember     = "add_member"
)

// ChatSyncEvent records a failed best-effort chat call (PostgreSQL).
type ChatSyncEvent struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Op         string     `json:"op" gorm:"size:30;index"`
	SubjectID  string     `json:"subject_id" gorm:"size:64;index"` // user or group id
	ChannelID  string     `json:"channel_id" gorm:"size:80"`
	Error      string     `json:"error"`
	Attempts   int        `json:"attempts" gorm:"not null"`
	ResolvedAt *time.Time `json:"resolved_at" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
