package mail

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/source"
)

// detailConcurrency bounds parallel metadata requests per cycle.
const detailConcurrency = 4

const inboxURL = "https://mail.google.com/mail/u/0/#inbox/"

// gmailMailbox reads unread messages through the Gmail API.
type gmailMailbox struct {
	svc         *gmail.Service
	label       string
	listLimit   int
	detailLimit int
}

func newGmailMailbox(
	ctx context.Context,
	token *oauth2.Token,
	opts Options,
) (*gmailMailbox, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	httpClient.Timeout = opts.Timeout

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return &gmailMailbox{
		svc:         svc,
		label:       opts.Label,
		listLimit:   opts.ListLimit,
		detailLimit: opts.DetailLimit,
	}, nil
}

// Query builds the Gmail search expression for unread mail, optionally
// restricted to one label.
func Query(label string) string {
	if label = strings.TrimSpace(label); label != "" {
		return "label:" + label + " is:unread"
	}
	return "is:unread"
}

// Unread lists unread message ids and fetches metadata for at most
// detailLimit of them. A failed detail fetch skips that message only,
// but running out of time fails the whole call.
func (g *gmailMailbox) Unread(ctx context.Context) ([]source.MailRecord, error) {
	log := logger.FromContext(ctx)

	resp, err := g.svc.Users.Messages.List("me").
		Q(Query(g.label)).
		MaxResults(int64(g.listLimit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := resp.Messages
	log.Info("mail: found unread messages", "count", len(messages), "query", Query(g.label))
	if len(messages) > g.detailLimit {
		messages = messages[:g.detailLimit]
	}

	slots := make([]*source.MailRecord, len(messages))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(detailConcurrency)
	for i, m := range messages {
		eg.Go(func() error {
			msg, err := g.svc.Users.Messages.Get("me", m.Id).
				Format("metadata").
				MetadataHeaders("Subject", "From", "Date").
				Context(egCtx).
				Do()
			if err != nil {
				log.Warn("mail: skipping message", "id", m.Id, "error", err)
				return nil
			}
			slots[i] = messageRecord(msg)
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching message details: %w", err)
	}

	records := make([]source.MailRecord, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}

// Probe returns the authenticated address.
func (g *gmailMailbox) Probe(ctx context.Context) (string, error) {
	profile, err := g.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("getting profile: %w", err)
	}
	return fmt.Sprintf("Connected as %s", profile.EmailAddress), nil
}

func messageRecord(msg *gmail.Message) *source.MailRecord {
	rec := &source.MailRecord{ID: msg.Id, URL: inboxURL + msg.Id}
	if msg.Payload == nil {
		return rec
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			rec.Subject = h.Value
		case "From":
			rec.From = h.Value
		case "Date":
			rec.Date = h.Value
		}
	}
	return rec
}

// isAuthStatus reports whether an HTTP status means the token was refused.
func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
