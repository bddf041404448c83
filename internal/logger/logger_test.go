package logger

import (
	"bytes"
	"context"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := Discard()
		ctx := ContextWithLogger(context.Background(), expected)

		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when context has none", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
	})

	t.Run("Should return default logger when context value is nil", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), contextKey{}, (Logger)(nil))
		require.NotNil(t, FromContext(ctx))
	})
}

func TestParseLevel(t *testing.T) {
	t.Run("Should map known levels and default to info", func(t *testing.T) {
		assert.Equal(t, charmlog.DebugLevel, ParseLevel("debug"))
		assert.Equal(t, charmlog.WarnLevel, ParseLevel("WARN"))
		assert.Equal(t, charmlog.ErrorLevel, ParseLevel("error"))
		assert.Equal(t, charmlog.InfoLevel, ParseLevel("nonsense"))
	})
}

func TestNew(t *testing.T) {
	t.Run("Should write JSON records with key values", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: "debug", JSON: true, Output: &buf})

		l.With("source", "mail").Info("fetched", "count", 3)

		out := buf.String()
		assert.Contains(t, out, `"msg":"fetched"`)
		assert.Contains(t, out, `"source":"mail"`)
		assert.Contains(t, out, `"count":3`)
	})

	t.Run("Should suppress records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: "warn", Output: &buf})

		l.Info("hidden")

		assert.Empty(t, buf.String())
	})
}
