package groupware

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("http://cybozu/cgi-bin/cbag/ag.exe")
	require.NoError(t, err)

	tests := []struct {
		name string
		href string
		want string
	}{
		{"absolute URL kept", "https://mail.example.com/a", "https://mail.example.com/a"},
		{"absolute path gets host", "/scheduler/view?id=1", "http://cybozu/scheduler/view?id=1"},
		{"relative link gets script dir", "ag.exe?page=MessageView&mDBID=7", "http://cybozu/cgi-bin/cbag/ag.exe?page=MessageView&mDBID=7"},
		{"empty href", "", ""},
	}
	for _, tt := range tests {
		t.Run("Should handle "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLink(base, tt.href))
		})
	}

	t.Run("Should resolve relative links against a host without a path", func(t *testing.T) {
		for _, raw := range []string{"http://portal.example.com", "http://portal.example.com/"} {
			bare, err := url.Parse(raw)
			require.NoError(t, err)

			assert.Equal(t, "http://portal.example.com/ag.exe?page=X", ResolveLink(bare, "ag.exe?page=X"), raw)
		}
	})
}

func TestIsLoginPage(t *testing.T) {
	t.Run("Should require both login markers", func(t *testing.T) {
		assert.True(t, IsLoginPage(loginFormHTML))
		assert.False(t, IsLoginPage(`<a href="?_System=login">logout</a>`))
		assert.False(t, IsLoginPage(`<p>Password changed</p>`))
		assert.False(t, IsLoginPage(listingHTML))
	})
}

func TestMergeCookies(t *testing.T) {
	t.Run("Should keep order and let later cookies win", func(t *testing.T) {
		merged := mergeCookies(
			[]*http.Cookie{{Name: "session", Value: "init"}, {Name: "lang", Value: "ja"}},
			[]*http.Cookie{{Name: "session", Value: "auth"}, {Name: "ticket", Value: "t"}},
		)

		require.Len(t, merged, 3)
		assert.Equal(t, "session", merged[0].Name)
		assert.Equal(t, "auth", merged[0].Value)
		assert.Equal(t, "lang", merged[1].Name)
		assert.Equal(t, "ticket", merged[2].Name)
	})
}

func TestParseNotifications(t *testing.T) {
	base, err := url.Parse("http://cybozu/cgi-bin/cbag/ag.exe")
	require.NoError(t, err)
	fetched := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("Should skip the header row and blank titles", func(t *testing.T) {
		records, err := ParseNotifications(listingHTML, base, fetched, 0)

		require.NoError(t, err)
		require.Len(t, records, 3)
		for _, r := range records {
			assert.NotEqual(t, headerTitle, r.Title)
			assert.Equal(t, fetched, r.FetchedAt)
		}
	})

	t.Run("Should return nothing for markup without notification rows", func(t *testing.T) {
		records, err := ParseNotifications(`<html><body><a href="x">x</a></body></html>`, base, fetched, 0)

		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
