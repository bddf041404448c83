package notify

import (
	"context"
	"errors"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/store"
)

// Journal records summaries and per-source failures in the notification
// store.
type Journal struct {
	store store.Journal
}

// NewJournal writes to s.
func NewJournal(s store.Journal) *Journal {
	return &Journal{store: s}
}

// Notify stores one summary row plus one row per failed source.
func (j *Journal) Notify(ctx context.Context, summary model.Summary) error {
	var errs []error

	_, err := j.store.RecordNotification(ctx, model.Notification{
		Kind:      model.NotificationSummary,
		Message:   Describe(summary),
		CreatedAt: summary.CompletedAt,
	})
	errs = append(errs, err)

	for _, name := range summarySources(summary) {
		if !summary.Failed(name) {
			continue
		}
		msg := summary.ErrorMessages[name]
		if msg == "" {
			msg = string(name) + " failed"
		}
		_, err := j.store.RecordNotification(ctx, model.Notification{
			Kind:       model.NotificationSourceError,
			SourceName: name,
			Message:    msg,
			CreatedAt:  summary.CompletedAt,
		})
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
