// Package tracker fetches incomplete assigned tasks from an
// Asana-compatible project tracker REST API.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// Defaults for Options fields left at zero.
const (
	DefaultBaseURL  = "https://app.asana.com/api/1.0"
	DefaultTimeout  = 15 * time.Second
	DefaultMaxItems = 100
	DefaultRetries  = 2
)

// Options configures the tracker adapter.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	MaxItems int

	// Retries bounds how often a rate limited request is repeated.
	Retries   int
	RetryWait time.Duration
}

// Adapter implements source.Adapter for the project tracker.
type Adapter struct {
	opts Options
}

// NewAdapter creates a tracker adapter. Zero option values select defaults.
func NewAdapter(opts Options) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}
	return &Adapter{opts: opts}
}

// Name returns the project tracker source name.
func (a *Adapter) Name() model.SourceName {
	return model.SourceTracker
}

func (a *Adapter) client(creds credential.Set) (*Client, error) {
	if creds.Tracker == nil || creds.Tracker.AccessToken == "" {
		return nil, source.NotConfigured(model.SourceTracker, "project tracker not authenticated")
	}
	return NewClient(
		a.opts.BaseURL,
		creds.Tracker.AccessToken,
		a.opts.Timeout,
		a.opts.Retries,
		a.opts.RetryWait,
	), nil
}

// Fetch returns the user's incomplete tasks in the first workspace.
func (a *Adapter) Fetch(ctx context.Context, creds credential.Set) ([]source.Record, error) {
	log := logger.FromContext(ctx).With("source", model.SourceTracker)

	c, err := a.client(creds)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return nil, classify("listing workspaces", err)
	}
	if len(workspaces) == 0 {
		return nil, source.Rejected(model.SourceTracker, "no workspace found", nil)
	}
	ws := workspaces[0]
	log.Debug("tracker: using workspace", "gid", ws.GID, "name", ws.Name)

	tasks, err := c.IncompleteTasks(ctx, ws.GID, a.opts.MaxItems)
	if err != nil {
		return nil, classify("listing tasks", err)
	}
	if len(tasks) > a.opts.MaxItems {
		tasks = tasks[:a.opts.MaxItems]
	}

	records := make([]source.Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, taskRecord(t))
	}
	log.Info("tracker: fetched tasks", "count", len(records))
	return records, nil
}

// Probe checks the token against /users/me and counts workspaces.
func (a *Adapter) Probe(ctx context.Context, creds credential.Set) model.ProbeResult {
	result := model.ProbeResult{SourceName: model.SourceTracker}

	c, err := a.client(creds)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	me, err := c.Me(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("Connection failed: %v", classify("getting user", err))
		return result
	}
	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("Connection failed: %v", classify("listing workspaces", err))
		return result
	}

	result.Connected = true
	result.Message = fmt.Sprintf("Connected as %s (%s) with %d workspaces", me.Name, me.Email, len(workspaces))
	return result
}

func classify(msg string, err error) *source.Error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Auth() {
			return source.Rejected(model.SourceTracker, "authentication failed, check the access token", err)
		}
		return source.Rejected(model.SourceTracker, msg, err)
	}
	return source.Classify(model.SourceTracker, msg, err)
}

// taskRecord flattens the API shape into the raw tracker record.
func taskRecord(t Task) source.TrackerRecord {
	rec := source.TrackerRecord{
		GID:          t.GID,
		Name:         t.Name,
		Notes:        t.Notes,
		DueOn:        t.DueOn,
		DueAt:        t.DueAt,
		Completed:    t.Completed,
		CreatedAt:    t.CreatedAt,
		ModifiedAt:   t.ModifiedAt,
		PermalinkURL: t.PermalinkURL,
	}
	if t.Assignee != nil {
		rec.AssigneeName = t.Assignee.Name
	}
	for _, f := range t.CustomFields {
		if !strings.EqualFold(f.Name, "priority") {
			continue
		}
		if f.EnumValue != nil {
			rec.Priority = f.EnumValue.Name
		} else {
			rec.Priority = f.DisplayValue
		}
		break
	}
	return rec
}
