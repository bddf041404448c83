// Package groupware scrapes notifications from a groupware portal that
// exposes no structured API.
package groupware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// DefaultTimeout bounds one full login and fetch.
const DefaultTimeout = 10 * time.Second

// DefaultMaxItems caps the notifications considered per cycle.
const DefaultMaxItems = 100

// Adapter implements source.Adapter for the groupware portal.
//
// Policy: network failures (unreachable host, refused connection,
// timeout) and login-form responses degrade to an empty item list
// instead of an error entry.
type Adapter struct {
	timeout  time.Duration
	maxItems int
}

// NewAdapter creates a groupware adapter. Zero values select defaults.
func NewAdapter(timeout time.Duration, maxItems int) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Adapter{timeout: timeout, maxItems: maxItems}
}

// Name returns the groupware source name.
func (a *Adapter) Name() model.SourceName {
	return model.SourceGroupware
}

// Fetch logs in, loads the notification listing and returns its rows.
func (a *Adapter) Fetch(ctx context.Context, creds credential.Set) ([]source.Record, error) {
	log := logger.FromContext(ctx).With("source", model.SourceGroupware)

	if !creds.Groupware.Usable() {
		return nil, source.NotConfigured(
			model.SourceGroupware, "base URL, username and password are required",
		)
	}

	session, err := NewSession(*creds.Groupware, a.timeout, a.maxItems)
	if err != nil {
		return nil, source.NotConfigured(model.SourceGroupware, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	log.Info("groupware: attempting login", "url", creds.Groupware.BaseURL)
	rows, err := session.Run(logger.ContextWithLogger(ctx, log))
	if err != nil {
		if source.IsNetworkError(err) {
			log.Warn("groupware: service unavailable, skipping", "error", err)
			return nil, nil
		}
		return nil, source.Classify(model.SourceGroupware, "groupware request failed", err)
	}
	if session.State() == StateAuthenticationFailed {
		return nil, nil
	}

	records := make([]source.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row)
	}
	log.Info("groupware: found notifications", "count", len(records))
	return records, nil
}

// Probe performs the login handshake only.
func (a *Adapter) Probe(ctx context.Context, creds credential.Set) model.ProbeResult {
	result := model.ProbeResult{SourceName: model.SourceGroupware}

	if !creds.Groupware.Usable() {
		result.Error = "Configuration missing"
		return result
	}

	session, err := NewSession(*creds.Groupware, a.timeout, a.maxItems)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	status, err := session.Login(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("Connection failed: %v", err)
		return result
	}

	result.Connected = true
	if status == http.StatusFound {
		result.Message = "Groupware login successful (redirected)"
	} else {
		result.Message = "Groupware connection successful"
	}
	return result
}
