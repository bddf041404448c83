package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultRetryWait = 500 * time.Millisecond

// Client is a thin client for the tracker REST API. It authenticates
// with a bearer token and retries rate limited requests a bounded
// number of times.
type Client struct {
	http *resty.Client
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.Code)
}

// Auth reports whether the status means the token was refused.
func (e *StatusError) Auth() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// NewClient creates a client for baseURL using a bearer token.
func NewClient(
	baseURL, token string,
	timeout time.Duration,
	retries int,
	retryWait time.Duration,
) *Client {
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryWait * 8).
		SetRetryAfter(retryAfter).
		AddRetryCondition(func(r *resty.Response, _ error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})
	return &Client{http: c}
}

// retryAfter honors a Retry-After header in seconds and otherwise
// returns zero so resty's own backoff applies.
func retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp == nil {
		return 0, nil
	}
	if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, nil
}

// get performs a GET and decodes the data envelope into out.
func get[T any](ctx context.Context, c *Client, path string, query map[string]string, out *T) error {
	var body envelope[T]
	var apiErr ErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&body).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return &StatusError{
			Method:  http.MethodGet,
			Path:    path,
			Code:    resp.StatusCode(),
			Message: apiErr.Message(),
		}
	}

	*out = body.Data
	return nil
}

// Workspaces lists the workspaces visible to the token.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var ws []Workspace
	if err := get(ctx, c, "/workspaces", nil, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// IncompleteTasks lists tasks in workspace assigned to the token owner
// that are not yet completed.
func (c *Client) IncompleteTasks(ctx context.Context, workspace string, limit int) ([]Task, error) {
	var tasks []Task
	err := get(ctx, c, "/tasks", map[string]string{
		"assignee":        "me",
		"workspace":       workspace,
		"completed_since": "now",
		"limit":           strconv.Itoa(limit),
		"opt_fields":      taskFields,
	}, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := get(ctx, c, "/users/me", nil, &u)
	return u, err
}
