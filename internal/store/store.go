package store

import (
	"context"
	"errors"

	"github.com/git-tkc/self-assistant/internal/model"
)

// ErrNotFound is returned when a notification id does not exist.
var ErrNotFound = errors.New("notification not found")

// NotificationFilter narrows a journal listing.
type NotificationFilter struct {
	Kind       *model.NotificationKind
	SourceName *model.SourceName
	UnreadOnly bool
	Limit      int
}

// Journal persists the notifications announced to the user. It stores
// what was said about each refresh cycle, not the tasks themselves.
type Journal interface {
	RecordNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	ListNotifications(ctx context.Context, opts NotificationFilter) ([]model.Notification, error)
	ListUnread(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
	Close() error
}
