package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/source"
)

// fakeGmail serves the three Gmail endpoints the adapter calls.
type fakeGmail struct {
	ids        []string
	failDetail string
	listStatus int

	// hangDetails, when set, blocks detail requests until it is closed
	// or the client gives up.
	hangDetails chan struct{}

	details   atomic.Int32
	lastQuery atomic.Value
}

func (f *fakeGmail) handler() http.Handler {
	const prefix = "/gmail/v1/users/me/"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		p := strings.TrimPrefix(r.URL.Path, prefix)
		switch {
		case p == "profile":
			writeJSON(w, map[string]any{"emailAddress": "alice@example.com"})
		case p == "messages":
			f.lastQuery.Store(r.URL.Query().Get("q"))
			if f.listStatus != 0 {
				writeAPIError(w, f.listStatus, "boom")
				return
			}
			msgs := make([]map[string]string, 0, len(f.ids))
			for _, id := range f.ids {
				msgs = append(msgs, map[string]string{"id": id, "threadId": "t-" + id})
			}
			writeJSON(w, map[string]any{"messages": msgs})
		case strings.HasPrefix(p, "messages/"):
			id := strings.TrimPrefix(p, "messages/")
			f.details.Add(1)
			if f.hangDetails != nil {
				select {
				case <-r.Context().Done():
				case <-f.hangDetails:
				}
				return
			}
			if id == f.failDetail {
				writeAPIError(w, http.StatusNotFound, "not found")
				return
			}
			writeJSON(w, map[string]any{
				"id": id,
				"payload": map[string]any{"headers": []map[string]string{
					{"name": "Subject", "value": "Subject " + id},
					{"name": "From", "value": "Bob <bob@example.com>"},
					{"name": "Date", "value": "Mon, 02 Jan 2025 10:00:00 +0000"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func startGmail(t *testing.T, f *fakeGmail) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return srv
}

func tokenSet(tok string) credential.Set {
	return credential.Set{Mail: &credential.MailHandle{
		Token: &oauth2.Token{AccessToken: tok, TokenType: "Bearer"},
	}}
}

func TestAdapter_Fetch(t *testing.T) {
	t.Run("Should fetch metadata for unread messages", func(t *testing.T) {
		f := &fakeGmail{ids: []string{"m1", "m2"}}
		srv := startGmail(t, f)
		a := NewAdapter(Options{Endpoint: srv.URL + "/", Timeout: time.Second})

		records, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.NoError(t, err)
		require.Len(t, records, 2)
		first := records[0].(source.MailRecord)
		assert.Equal(t, "m1", first.ID)
		assert.Equal(t, "Subject m1", first.Subject)
		assert.Equal(t, "Bob <bob@example.com>", first.From)
		assert.Equal(t, "Mon, 02 Jan 2025 10:00:00 +0000", first.Date)
		assert.Equal(t, "https://mail.google.com/mail/u/0/#inbox/m1", first.URL)
		assert.Equal(t, "is:unread", f.lastQuery.Load())
	})

	t.Run("Should report unreachable when details outlast the timeout", func(t *testing.T) {
		f := &fakeGmail{ids: []string{"m1", "m2"}, hangDetails: make(chan struct{})}
		srv := startGmail(t, f)
		t.Cleanup(func() { close(f.hangDetails) })
		a := NewAdapter(Options{Endpoint: srv.URL + "/", Timeout: 200 * time.Millisecond})

		start := time.Now()
		records, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.Error(t, err)
		assert.Nil(t, records)
		assert.True(t, source.IsKind(err, source.KindUnreachable), "got %v", err)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Positive(t, f.details.Load())
	})

	t.Run("Should restrict the query to the configured label", func(t *testing.T) {
		f := &fakeGmail{}
		srv := startGmail(t, f)
		a := NewAdapter(Options{Endpoint: srv.URL + "/", Label: "work"})

		records, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Equal(t, "label:work is:unread", f.lastQuery.Load())
	})

	t.Run("Should fetch details for at most the detail limit", func(t *testing.T) {
		f := &fakeGmail{ids: []string{"a", "b", "c", "d", "e"}}
		srv := startGmail(t, f)
		a := NewAdapter(Options{Endpoint: srv.URL + "/", ListLimit: 5, DetailLimit: 3})

		records, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.EqualValues(t, 3, f.details.Load())
	})

	t.Run("Should skip a message whose detail fetch fails", func(t *testing.T) {
		f := &fakeGmail{ids: []string{"a", "b", "c"}, failDetail: "b"}
		srv := startGmail(t, f)
		a := NewAdapter(Options{Endpoint: srv.URL + "/"})

		records, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].LocalID())
		assert.Equal(t, "c", records[1].LocalID())
	})

	t.Run("Should reject an invalid token", func(t *testing.T) {
		srv := startGmail(t, &fakeGmail{})
		a := NewAdapter(Options{Endpoint: srv.URL + "/"})

		_, err := a.Fetch(context.Background(), tokenSet("bad-token"))

		require.Error(t, err)
		assert.True(t, source.IsKind(err, source.KindRejected))
		assert.Contains(t, err.Error(), "rejected the access token")
	})

	t.Run("Should reject a failing list call", func(t *testing.T) {
		srv := startGmail(t, &fakeGmail{listStatus: http.StatusInternalServerError})
		a := NewAdapter(Options{Endpoint: srv.URL + "/"})

		_, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.Error(t, err)
		assert.True(t, source.IsKind(err, source.KindRejected))
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("Should report unreachable when the API is down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL + "/"
		srv.Close()
		a := NewAdapter(Options{Endpoint: endpoint, Timeout: time.Second})

		_, err := a.Fetch(context.Background(), tokenSet("good-token"))

		require.Error(t, err)
		assert.True(t, source.IsKind(err, source.KindUnreachable))
	})

	t.Run("Should report not configured without a handle", func(t *testing.T) {
		_, err := NewAdapter(Options{}).Fetch(context.Background(), credential.Set{})

		require.Error(t, err)
		assert.True(t, source.IsKind(err, source.KindNotConfigured))
		assert.Contains(t, err.Error(), "mail not authenticated")
	})
}

func TestAdapter_Probe(t *testing.T) {
	t.Run("Should report the authenticated address", func(t *testing.T) {
		srv := startGmail(t, &fakeGmail{})
		a := NewAdapter(Options{Endpoint: srv.URL + "/"})

		res := a.Probe(context.Background(), tokenSet("good-token"))

		assert.True(t, res.Connected)
		assert.Equal(t, "Connected as alice@example.com", res.Message)
	})

	t.Run("Should report a refused token", func(t *testing.T) {
		srv := startGmail(t, &fakeGmail{})
		a := NewAdapter(Options{Endpoint: srv.URL + "/"})

		res := a.Probe(context.Background(), tokenSet("bad-token"))

		assert.False(t, res.Connected)
		assert.Contains(t, res.Error, "Connection failed")
	})

	t.Run("Should report missing configuration", func(t *testing.T) {
		res := NewAdapter(Options{}).Probe(context.Background(), credential.Set{})

		assert.False(t, res.Connected)
		assert.Contains(t, res.Error, "not authenticated")
	})
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "is:unread", Query(""))
	assert.Equal(t, "is:unread", Query("  "))
	assert.Equal(t, "label:INBOX is:unread", Query("INBOX"))
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{ListLimit: 5, DetailLimit: 10}.withDefaults()

	assert.Equal(t, 5, o.ListLimit)
	assert.Equal(t, 5, o.DetailLimit)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestEnvelopeRecord(t *testing.T) {
	t.Run("Should render sender and date like mail headers", func(t *testing.T) {
		date := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
		rec := envelopeRecord(42, &imap.Envelope{
			Subject: "Quarterly report",
			Date:    date,
			From:    []imap.Address{{Name: "Bob", Mailbox: "bob", Host: "example.com"}},
		})

		assert.Equal(t, "42", rec.ID)
		assert.Equal(t, "Quarterly report", rec.Subject)
		assert.Equal(t, "Bob <bob@example.com>", rec.From)
		assert.Equal(t, date.Format(time.RFC1123Z), rec.Date)
		assert.Empty(t, rec.URL)
	})

	t.Run("Should use the bare address when the sender has no name", func(t *testing.T) {
		rec := envelopeRecord(1, &imap.Envelope{
			From: []imap.Address{{Mailbox: "noreply", Host: "example.com"}},
		})

		assert.Equal(t, "noreply@example.com", rec.From)
		assert.Empty(t, rec.Date)
	})

	t.Run("Should tolerate a missing envelope", func(t *testing.T) {
		rec := envelopeRecord(7, nil)

		assert.Equal(t, "7", rec.ID)
		assert.Empty(t, rec.Subject)
	})
}
