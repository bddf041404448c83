// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/store"
)

// NewTestStore opens an in-memory journal that is closed with the test.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test journal")
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

// SeedNotification records one notification created at the given offset
// from a fixed base time, so list ordering is deterministic.
func SeedNotification(
	t *testing.T,
	s store.Journal,
	kind model.NotificationKind,
	source model.SourceName,
	message string,
	offset time.Duration,
) model.Notification {
	t.Helper()

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	n, err := s.RecordNotification(context.Background(), model.Notification{
		Kind:       kind,
		SourceName: source,
		Message:    message,
		CreatedAt:  base.Add(offset),
	})
	require.NoError(t, err)
	return n
}
