package mail

import (
	"context"
	"time"

	"github.com/git-tkc/self-assistant/internal/source"
)

// Defaults for Options fields left at zero.
const (
	DefaultListLimit   = 50
	DefaultDetailLimit = 20
	DefaultTimeout     = 15 * time.Second
)

// Options configures the mail adapter.
type Options struct {
	// Label restricts the Gmail query to one label.
	Label string

	// Endpoint overrides the Gmail API root URL, mainly for tests.
	Endpoint string

	// ListLimit caps how many unread ids are listed.
	ListLimit int

	// DetailLimit caps how many listed messages get a metadata fetch.
	DetailLimit int

	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.ListLimit <= 0 {
		o.ListLimit = DefaultListLimit
	}
	if o.DetailLimit <= 0 {
		o.DetailLimit = DefaultDetailLimit
	}
	if o.DetailLimit > o.ListLimit {
		o.DetailLimit = o.ListLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// mailbox is the provider specific half of the adapter.
type mailbox interface {
	Unread(ctx context.Context) ([]source.MailRecord, error)
	Probe(ctx context.Context) (string, error)
}
