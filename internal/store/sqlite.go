package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/git-tkc/self-assistant/internal/model"
)

// SQLiteStore implements Journal using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Journal = (*SQLiteStore)(nil)

// NewSQLiteStore opens the journal at dbPath, creating and upgrading
// the schema as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// RecordNotification inserts a notification. A missing ID or timestamp
// is filled in; the stored row is returned.
func (s *SQLiteStore) RecordNotification(
	ctx context.Context,
	n model.Notification,
) (model.Notification, error) {
	if strings.TrimSpace(n.Message) == "" {
		return model.Notification{}, fmt.Errorf("notification message must not be empty")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, kind, source_name, message, read, created_at)
		VALUES (:id, :kind, :source_name, :message, :read, :created_at)`,
		n,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("creating notification: %w", err)
	}

	return n, nil
}

// ListNotifications returns notifications matching opts, newest first.
func (s *SQLiteStore) ListNotifications(
	ctx context.Context,
	opts NotificationFilter,
) ([]model.Notification, error) {
	var conditions []string
	var args []interface{}

	if opts.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*opts.Kind))
	}
	if opts.SourceName != nil {
		conditions = append(conditions, "source_name = ?")
		args = append(args, string(*opts.SourceName))
	}
	if opts.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}

	query := "SELECT id, kind, source_name, message, read, created_at FROM notifications"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	notifications := []model.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return notifications, nil
}

// ListUnread returns every unread notification, newest first.
func (s *SQLiteStore) ListUnread(ctx context.Context) ([]model.Notification, error) {
	return s.ListNotifications(ctx, NotificationFilter{UnreadOnly: true})
}

// MarkRead marks a single notification as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkAllRead marks every unread notification as read and reports how
// many changed.
func (s *SQLiteStore) MarkAllRead(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE read = 0")
	if err != nil {
		return 0, fmt.Errorf("marking notifications as read: %w", err)
	}
	return result.RowsAffected()
}
