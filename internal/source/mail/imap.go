package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// imapMailbox reads unseen messages from an IMAP INBOX.
type imapMailbox struct {
	login     credential.IMAPLogin
	listLimit int
}

func newIMAPMailbox(login credential.IMAPLogin, opts Options) *imapMailbox {
	if login.Port == "" {
		login.Port = "993"
	}
	return &imapMailbox{login: login, listLimit: opts.ListLimit}
}

// connect dials the server honoring ctx, authenticates and returns the
// client. The caller is responsible for calling Logout on it.
func (m *imapMailbox) connect(ctx context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(m.login.Host, m.login.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: m.login.Host}
	var client *imapclient.Client
	if m.login.TLS {
		client = imapclient.New(tls.Client(conn, tlsConfig), nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starting TLS with %s: %w", addr, err)
		}
	}

	if err := client.Login(m.login.Username, m.login.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, source.Rejected(
			model.SourceMail,
			fmt.Sprintf("authentication failed for %s", m.login.Username),
			err,
		)
	}
	return client, nil
}

// Unread returns envelopes of the newest listLimit unseen messages.
func (m *imapMailbox) Unread(ctx context.Context) ([]source.MailRecord, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if m.listLimit > 0 && len(uids) > m.listLimit {
		uids = uids[len(uids)-m.listLimit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var records []source.MailRecord
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		records = append(records, envelopeRecord(uint32(buf.UID), buf.Envelope))
	}

	if err := fetchCmd.Close(); err != nil {
		return records, fmt.Errorf("fetching envelopes: %w", err)
	}
	return records, nil
}

// Probe logs in and selects INBOX.
func (m *imapMailbox) Probe(ctx context.Context) (string, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting INBOX: %w", err)
	}
	return fmt.Sprintf("Connected as %s", m.login.Username), nil
}

// envelopeRecord maps an IMAP envelope onto the mail record shape,
// rendering header values the way the Gmail API returns them.
func envelopeRecord(uid uint32, env *imap.Envelope) source.MailRecord {
	rec := source.MailRecord{ID: strconv.FormatUint(uint64(uid), 10)}
	if env == nil {
		return rec
	}

	rec.Subject = env.Subject
	if !env.Date.IsZero() {
		rec.Date = env.Date.Format(time.RFC1123Z)
	}
	if len(env.From) > 0 {
		from := env.From[0]
		if from.Name != "" {
			rec.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
		} else {
			rec.From = from.Addr()
		}
	}
	return rec
}
