package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
)

// Resolver builds a fresh credential Set for each aggregation request
// from the config and, for secrets absent there, a secret store.
type Resolver struct {
	cfg     *model.AppConfig
	secrets Secrets
}

// NewResolver creates a Resolver. secrets may be nil.
func NewResolver(cfg *model.AppConfig, secrets Secrets) *Resolver {
	return &Resolver{cfg: cfg, secrets: secrets}
}

// Resolve returns the handles available right now. Missing secrets
// leave the corresponding handle nil; only malformed secrets are errors
// and those are logged rather than returned so one bad source cannot
// take down the others.
func (r *Resolver) Resolve(ctx context.Context) Set {
	log := logger.FromContext(ctx)
	var set Set

	gw := r.cfg.Groupware
	if pw := r.secret(gw.Password, KeyGroupwarePassword); gw.Username != "" && pw != "" {
		set.Groupware = &Login{
			BaseURL:  gw.BaseURL,
			Username: gw.Username,
			Password: pw,
		}
	}

	mail, err := r.mailHandle()
	if err != nil {
		log.Warn("ignoring unusable mail credential", "error", err)
	}
	set.Mail = mail

	if token := r.secret(r.cfg.Tracker.Token, KeyTrackerToken); token != "" {
		set.Tracker = &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	}

	return set
}

func (r *Resolver) mailHandle() (*MailHandle, error) {
	mc := r.cfg.Mail
	if mc.Provider == "imap" {
		pw := r.secret(mc.IMAPPassword, KeyIMAPPassword)
		if mc.IMAPHost == "" || mc.IMAPUsername == "" || pw == "" {
			return nil, nil
		}
		return &MailHandle{IMAP: &IMAPLogin{
			Host:     mc.IMAPHost,
			Port:     mc.IMAPPort,
			Username: mc.IMAPUsername,
			Password: pw,
			TLS:      mc.IMAPTLS,
		}}, nil
	}

	var raw string
	if mc.TokenFile != "" {
		data, err := os.ReadFile(mc.TokenFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading token file %s: %w", mc.TokenFile, err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		raw = r.secret("", KeyMailToken)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	token, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}
	return &MailHandle{Token: token}, nil
}

// secret prefers an inline value and falls back to the secret store.
func (r *Resolver) secret(inline, key string) string {
	if inline != "" {
		return inline
	}
	if r.secrets == nil {
		return ""
	}
	v, err := r.secrets.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// ParseToken decodes a JSON oauth2 token and rejects tokens without an
// access token.
func ParseToken(raw string) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("decoding oauth2 token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("oauth2 token has no access_token")
	}
	return &token, nil
}
