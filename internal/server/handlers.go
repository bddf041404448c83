package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/git-tkc/self-assistant/internal/aggregate"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/store"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, aggregate.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) health(c *gin.Context) {
	ok(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"sources":   s.deps.Aggregator.Sources(),
	})
}

func (s *Server) listTasks(c *gin.Context) {
	ok(c, s.deps.Aggregator.Aggregate(c.Request.Context()))
}

// refreshTasks runs a fresh cycle. Nothing is cached between requests,
// so it behaves like listTasks.
func (s *Server) refreshTasks(c *gin.Context) {
	ok(c, s.deps.Aggregator.Aggregate(c.Request.Context()))
}

func (s *Server) listSourceTasks(c *gin.Context) {
	res, err := s.deps.Aggregator.AggregateSource(c.Request.Context(), c.Param("source"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, res)
}

func (s *Server) probeSource(c *gin.Context) {
	res, err := s.deps.Aggregator.Probe(c.Request.Context(), c.Param("source"))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, res)
}

// serviceStatus reports whether a source is switched on and has a
// capability handle. It never includes secret values.
type serviceStatus struct {
	Enabled    bool `json:"enabled"`
	Registered bool `json:"registered"`
	Configured bool `json:"configured"`
}

func (s *Server) serviceConfig(c *gin.Context) {
	registered := make(map[model.SourceName]bool)
	for _, name := range s.deps.Aggregator.Sources() {
		registered[name] = true
	}

	enabled := registered
	if s.deps.Config != nil {
		enabled = make(map[model.SourceName]bool)
		for _, name := range s.deps.Config.EnabledSources() {
			enabled[name] = true
		}
	}

	configured := map[model.SourceName]bool{}
	if s.deps.Credentials != nil {
		set := s.deps.Credentials.Resolve(c.Request.Context())
		configured[model.SourceGroupware] = set.Groupware.Usable()
		configured[model.SourceMail] = set.Mail != nil
		configured[model.SourceTracker] = set.Tracker != nil && set.Tracker.AccessToken != ""
	}

	out := make(map[model.SourceName]serviceStatus, len(model.AllSources))
	for _, name := range model.AllSources {
		out[name] = serviceStatus{
			Enabled:    enabled[name],
			Registered: registered[name],
			Configured: configured[name],
		}
	}
	ok(c, out)
}

func (s *Server) listNotifications(c *gin.Context) {
	if s.deps.Journal == nil {
		ok(c, []model.Notification{})
		return
	}

	filter := store.NotificationFilter{UnreadOnly: c.Query("all") != "true"}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			fail(c, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("source"); raw != "" {
		name, err := model.ParseSourceName(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		filter.SourceName = &name
	}

	list, err := s.deps.Journal.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, list)
}

func (s *Server) markNotificationRead(c *gin.Context) {
	if s.deps.Journal == nil {
		fail(c, http.StatusNotFound, store.ErrNotFound)
		return
	}
	if err := s.deps.Journal.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, gin.H{"id": c.Param("id")})
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	if s.deps.Journal == nil {
		ok(c, gin.H{"updated": 0})
		return
	}
	n, err := s.deps.Journal.MarkAllRead(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, gin.H{"updated": n})
}
