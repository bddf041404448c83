// Package mail surfaces unread inbox messages as tasks. Gmail is read
// through its REST API; any other provider can be reached over IMAP.
package mail

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// Adapter implements source.Adapter for the mail inbox.
type Adapter struct {
	opts Options
}

// NewAdapter creates a mail adapter. Zero option values select defaults.
func NewAdapter(opts Options) *Adapter {
	return &Adapter{opts: opts.withDefaults()}
}

// Name returns the mail source name.
func (a *Adapter) Name() model.SourceName {
	return model.SourceMail
}

func (a *Adapter) open(ctx context.Context, handle *credential.MailHandle) (mailbox, error) {
	switch {
	case handle == nil:
		return nil, source.NotConfigured(model.SourceMail, "mail not authenticated")
	case handle.Token != nil:
		return newGmailMailbox(ctx, handle.Token, a.opts)
	case handle.IMAP != nil:
		return newIMAPMailbox(*handle.IMAP, a.opts), nil
	default:
		return nil, source.NotConfigured(model.SourceMail, "mail not authenticated")
	}
}

// Fetch returns metadata for the newest unread messages.
func (a *Adapter) Fetch(ctx context.Context, creds credential.Set) ([]source.Record, error) {
	log := logger.FromContext(ctx).With("source", model.SourceMail)

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	box, err := a.open(ctx, creds.Mail)
	if err != nil {
		return nil, classify(err)
	}

	msgs, err := box.Unread(logger.ContextWithLogger(ctx, log))
	if err != nil {
		return nil, classify(err)
	}

	records := make([]source.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, m)
	}
	log.Info("mail: fetched messages", "count", len(records))
	return records, nil
}

// Probe performs one authenticated profile or mailbox call.
func (a *Adapter) Probe(ctx context.Context, creds credential.Set) model.ProbeResult {
	result := model.ProbeResult{SourceName: model.SourceMail}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	box, err := a.open(ctx, creds.Mail)
	if err != nil {
		result.Error = classify(err).Error()
		return result
	}

	msg, err := box.Probe(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("Connection failed: %v", classify(err))
		return result
	}
	result.Connected = true
	result.Message = msg
	return result
}

// classify maps provider errors onto the source taxonomy. Gmail API
// status errors are rejections even though they arrive over HTTP.
func classify(err error) error {
	var srcErr *source.Error
	if errors.As(err, &srcErr) {
		return srcErr
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("gmail API returned status %d", apiErr.Code)
		if isAuthStatus(apiErr.Code) {
			msg = "gmail rejected the access token"
		}
		return source.Rejected(model.SourceMail, msg, err)
	}
	return source.Classify(model.SourceMail, "mail request failed", err)
}
