// Package app wires configuration, credentials, adapters and
// notification delivery into a ready aggregator.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/git-tkc/self-assistant/internal/aggregate"
	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/notify"
	"github.com/git-tkc/self-assistant/internal/store"
)

// Options carries the process level collaborators of an App.
type Options struct {
	// Secrets backs credentials absent from the config. May be nil.
	Secrets credential.Secrets

	// Console receives rendered cycle summaries. Nil selects stderr.
	Console io.Writer

	Logger logger.Logger
}

// App is the assembled application.
type App struct {
	Config      *model.AppConfig
	Logger      logger.Logger
	Credentials *credential.Resolver
	Aggregator  *aggregate.Aggregator

	// Journal is nil when no journal path is configured.
	Journal store.Journal

	dispatcher *notify.Dispatcher
}

// New assembles an App from cfg.
func New(ctx context.Context, cfg *model.AppConfig, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	a := &App{
		Config:      cfg,
		Logger:      log,
		Credentials: credential.NewResolver(cfg, opts.Secrets),
	}

	var emitter aggregate.Emitter
	if cfg.Notifications.Enabled {
		var subs []notify.Subscriber
		if cfg.Notifications.Console {
			subs = append(subs, notify.NewConsole(console))
		}
		if path := cfg.Notifications.JournalPath; path != "" {
			journal, err := openJournal(path)
			if err != nil {
				return nil, err
			}
			a.Journal = journal
			subs = append(subs, notify.NewJournal(journal))
		}
		a.dispatcher = notify.NewDispatcher(logger.ContextWithLogger(ctx, log), notify.DefaultBuffer, subs...)
		emitter = a.dispatcher
	}

	a.Aggregator = aggregate.New(a.Credentials, aggregate.WithEmitter(emitter))
	for _, adapter := range buildAdapters(cfg) {
		if err := a.Aggregator.Register(adapter); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("registering %s: %w", adapter.Name(), err)
		}
	}
	log.Debug("app: sources registered", "sources", a.Aggregator.Sources())

	return a, nil
}

func openJournal(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}
	journal, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening notification journal: %w", err)
	}
	return journal, nil
}

// Close flushes pending notifications and closes the journal.
func (a *App) Close() error {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
