package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/git-tkc/self-assistant/internal/aggregate"
	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/tests/testutil"
)

// fakeAggregator answers with canned results.
type fakeAggregator struct {
	calls int
}

func (f *fakeAggregator) Sources() []model.SourceName {
	return []model.SourceName{model.SourceGroupware, model.SourceMail}
}

func (f *fakeAggregator) Aggregate(context.Context) model.AggregationResult {
	f.calls++
	return model.AggregationResult{
		Tasks:      []model.Task{{ID: "mail_1", Title: "Hi", Priority: 2, Status: model.StatusOpen, SourceName: model.SourceMail}},
		TotalCount: 1,
	}
}

func (f *fakeAggregator) known(name string) error {
	for _, s := range f.Sources() {
		if string(s) == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", aggregate.ErrUnknownSource, name)
}

func (f *fakeAggregator) AggregateSource(ctx context.Context, name string) (model.AggregationResult, error) {
	if err := f.known(name); err != nil {
		return model.AggregationResult{}, err
	}
	return f.Aggregate(ctx), nil
}

func (f *fakeAggregator) Probe(_ context.Context, name string) (model.ProbeResult, error) {
	if err := f.known(name); err != nil {
		return model.ProbeResult{}, err
	}
	return model.ProbeResult{SourceName: model.SourceName(name), Connected: true, Message: "ok"}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func newTestServer(t *testing.T, deps Deps) (*Server, *fakeAggregator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	agg := &fakeAggregator{}
	deps.Aggregator = agg
	return New(deps), agg
}

func TestServer_Tasks(t *testing.T) {
	t.Run("Should return the aggregation envelope", func(t *testing.T) {
		srv, _ := newTestServer(t, Deps{})

		code, env := do(t, srv.Handler(), http.MethodGet, "/api/tasks")

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, env.Success)
		var res map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.EqualValues(t, 1, res["totalCount"])
		assert.Contains(t, res, "errors")
		assert.Contains(t, res, "lastUpdated")
	})

	t.Run("Should run a fresh cycle on refresh", func(t *testing.T) {
		srv, agg := newTestServer(t, Deps{})

		code, _ := do(t, srv.Handler(), http.MethodPost, "/api/tasks/refresh")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 1, agg.calls)
	})

	t.Run("Should serve one source", func(t *testing.T) {
		srv, _ := newTestServer(t, Deps{})

		code, env := do(t, srv.Handler(), http.MethodGet, "/api/tasks/mail")

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, env.Success)
	})

	t.Run("Should answer 400 for an unknown source", func(t *testing.T) {
		srv, agg := newTestServer(t, Deps{})

		code, env := do(t, srv.Handler(), http.MethodGet, "/api/tasks/jira")

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)
		assert.Contains(t, env.Error, "unknown source")
		assert.Zero(t, agg.calls)
	})
}

func TestServer_Services(t *testing.T) {
	t.Run("Should probe a known source", func(t *testing.T) {
		srv, _ := newTestServer(t, Deps{})

		code, env := do(t, srv.Handler(), http.MethodPost, "/api/services/test/groupware")

		assert.Equal(t, http.StatusOK, code)
		var res model.ProbeResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.True(t, res.Connected)
	})

	t.Run("Should refuse to probe an unknown source", func(t *testing.T) {
		srv, _ := newTestServer(t, Deps{})

		code, _ := do(t, srv.Handler(), http.MethodPost, "/api/services/test/jira")

		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should report configuration without secrets", func(t *testing.T) {
		creds := aggregate.StaticCredentials(credential.Set{
			Tracker: &oauth2.Token{AccessToken: "very-secret"},
		})
		srv, _ := newTestServer(t, Deps{Credentials: creds})

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/services/config", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "very-secret")
		var env struct {
			Data map[string]serviceStatus `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Data["project-tracker"].Configured)
		assert.False(t, env.Data["project-tracker"].Registered)
		assert.True(t, env.Data["mail"].Registered)
		assert.False(t, env.Data["mail"].Configured)
	})
}

func TestServer_Notifications(t *testing.T) {
	seed := func(t *testing.T) (*Server, string) {
		t.Helper()
		journal := testutil.NewTestStore(t)
		n := testutil.SeedNotification(t, journal, model.NotificationSummary, "", "Refreshed 1 tasks", 0)
		srv, _ := newTestServer(t, Deps{Journal: journal})
		return srv, n.ID
	}

	t.Run("Should list unread notifications", func(t *testing.T) {
		srv, _ := seed(t)

		code, env := do(t, srv.Handler(), http.MethodGet, "/api/notifications")

		assert.Equal(t, http.StatusOK, code)
		var list []model.Notification
		require.NoError(t, json.Unmarshal(env.Data, &list))
		require.Len(t, list, 1)
		assert.Equal(t, "Refreshed 1 tasks", list[0].Message)
	})

	t.Run("Should mark a notification read", func(t *testing.T) {
		srv, id := seed(t)

		code, _ := do(t, srv.Handler(), http.MethodPost, "/api/notifications/"+id+"/read")
		require.Equal(t, http.StatusOK, code)

		_, env := do(t, srv.Handler(), http.MethodGet, "/api/notifications")
		assert.JSONEq(t, "[]", string(env.Data))

		_, env = do(t, srv.Handler(), http.MethodGet, "/api/notifications?all=true")
		assert.True(t, strings.Contains(string(env.Data), id))
	})

	t.Run("Should answer 404 for a missing notification", func(t *testing.T) {
		srv, _ := seed(t)

		code, _ := do(t, srv.Handler(), http.MethodPost, "/api/notifications/nope/read")

		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("Should reject a bad limit", func(t *testing.T) {
		srv, _ := seed(t)

		code, _ := do(t, srv.Handler(), http.MethodGet, "/api/notifications?limit=x")

		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should return an empty list without a journal", func(t *testing.T) {
		srv, _ := newTestServer(t, Deps{})

		code, env := do(t, srv.Handler(), http.MethodGet, "/api/notifications")

		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, "[]", string(env.Data))
	})
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})

	code, env := do(t, srv.Handler(), http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestServer_Run(t *testing.T) {
	srv, _ := newTestServer(t, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, srv.Run(ctx, "127.0.0.1:0"))
}
