package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/store"
	"github.com/git-tkc/self-assistant/tests/testutil"
)

func TestSQLiteStore_Migrations(t *testing.T) {
	t.Run("Should apply every migration", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		v, err := s.SchemaVersion(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("Should reopen an existing file without reapplying", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal.db")
		s, err := store.NewSQLiteStore(path)
		require.NoError(t, err)
		_, err = s.RecordNotification(context.Background(), model.Notification{
			Kind: model.NotificationSummary, Message: "first",
		})
		require.NoError(t, err)
		require.NoError(t, s.Close())

		reopened, err := store.NewSQLiteStore(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = reopened.Close() })

		list, err := reopened.ListUnread(context.Background())
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestSQLiteStore_Notifications(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, s *store.SQLiteStore) []model.Notification {
		t.Helper()
		var out []model.Notification
		for i, n := range []model.Notification{
			{Kind: model.NotificationSummary, Message: "Refreshed 3 tasks"},
			{Kind: model.NotificationSourceError, SourceName: model.SourceMail, Message: "mail failed"},
			{Kind: model.NotificationSummary, Message: "Refreshed 4 tasks"},
		} {
			n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			stored, err := s.RecordNotification(ctx, n)
			require.NoError(t, err)
			out = append(out, stored)
		}
		return out
	}

	t.Run("Should fill in id and timestamp", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		n, err := s.RecordNotification(ctx, model.Notification{Kind: model.NotificationSummary, Message: "hello"})

		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
	})

	t.Run("Should reject an empty message", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		_, err := s.RecordNotification(ctx, model.Notification{Kind: model.NotificationSummary})

		assert.Error(t, err)
	})

	t.Run("Should list newest first", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		seed(t, s)

		list, err := s.ListUnread(ctx)

		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Refreshed 4 tasks", list[0].Message)
		assert.Equal(t, "Refreshed 3 tasks", list[2].Message)
		assert.True(t, list[2].CreatedAt.Equal(base))
	})

	t.Run("Should filter by kind and source", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		seed(t, s)
		kind := model.NotificationSourceError
		src := model.SourceMail

		list, err := s.ListNotifications(ctx, store.NotificationFilter{Kind: &kind, SourceName: &src})

		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "mail failed", list[0].Message)
		assert.Equal(t, model.SourceMail, list[0].SourceName)
	})

	t.Run("Should honor the limit", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		seed(t, s)

		list, err := s.ListNotifications(ctx, store.NotificationFilter{Limit: 2})

		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("Should mark one notification read", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		stored := seed(t, s)

		require.NoError(t, s.MarkRead(ctx, stored[0].ID))

		unread, err := s.ListUnread(ctx)
		require.NoError(t, err)
		assert.Len(t, unread, 2)
		all, err := s.ListNotifications(ctx, store.NotificationFilter{})
		require.NoError(t, err)
		assert.True(t, all[2].Read)
	})

	t.Run("Should report a missing id", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		err := s.MarkRead(ctx, "nope")

		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Should mark everything read", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		seed(t, s)

		n, err := s.MarkAllRead(ctx)

		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		unread, err := s.ListUnread(ctx)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}
