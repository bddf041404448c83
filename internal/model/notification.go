package model

import "time"

// NotificationKind classifies journal entries.
type NotificationKind string

const (
	NotificationSummary     NotificationKind = "summary"
	NotificationSourceError NotificationKind = "source_error"
)

// Notification is one entry in the notification journal. It records
// what was announced to the user, not task state.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	Kind NotificationKind `json:"kind" db:"kind"`

	// SourceName is empty for cycle summaries.
	SourceName SourceName `json:"source_name" db:"source_name"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
