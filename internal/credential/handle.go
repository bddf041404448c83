// Package credential builds the per-request capability handles that
// source adapters consume.
package credential

import "golang.org/x/oauth2"

// Keyring keys for secrets that are not kept in the config file.
const (
	KeyGroupwarePassword = "groupware-password"
	KeyMailToken         = "mail-token"
	KeyIMAPPassword      = "imap-password"
	KeyTrackerToken      = "tracker-token"
)

// Login is a username/password pair bound to a base URL.
type Login struct {
	BaseURL  string
	Username string
	Password string
}

// IMAPLogin holds the credentials for an IMAP mailbox.
type IMAPLogin struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// MailHandle grants access to the mail source. Exactly one of Token or
// IMAP is set depending on the provider.
type MailHandle struct {
	Token *oauth2.Token
	IMAP  *IMAPLogin
}

// Set carries one capability handle per source. A nil handle means the
// source is not configured for this request.
type Set struct {
	Groupware *Login
	Mail      *MailHandle
	Tracker   *oauth2.Token
}

// Usable reports whether a login carries every field the session needs.
func (l *Login) Usable() bool {
	return l != nil && l.BaseURL != "" && l.Username != "" && l.Password != ""
}
