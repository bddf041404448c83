package groupware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/git-tkc/self-assistant/internal/credential"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/source"
)

// State is a step of the login-cookie-fetch protocol.
//
// StateAuthenticationFailed is reached only when the listing turns out to
// be the login form, which yields no records and no error. A login post
// answered with an HTTP error leaves the session in StateLoginSubmitted
// and is reported as a rejection.
type State int

const (
	StateUnauthenticated State = iota
	StateLoginSubmitted
	StateSessionEstablished
	StatePageFetched
	StateParsed
	StateAuthenticationFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoginSubmitted:
		return "login_submitted"
	case StateSessionEstablished:
		return "session_established"
	case StatePageFetched:
		return "page_fetched"
	case StateParsed:
		return "parsed"
	case StateAuthenticationFailed:
		return "authentication_failed"
	default:
		return "unknown"
	}
}

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// listingQuery selects the notification index page.
var listingQuery = map[string]string{
	"page": "NotificationIndex",
	"Sort": "",
	"Rev":  "",
	"APP":  "",
	"MENT": "1",
}

// Session performs one authenticated scrape. It is single use: every
// aggregation cycle builds a new Session, so no cookies outlive a cycle.
type Session struct {
	login    credential.Login
	baseURL  *url.URL
	client   *resty.Client
	noFollow *resty.Client
	maxItems int
	now      func() time.Time

	state   State
	cookies []*http.Cookie
}

// NewSession prepares a session for login. It fails only when the base
// URL cannot be parsed.
func NewSession(login credential.Login, timeout time.Duration, maxItems int) (*Session, error) {
	base, err := url.Parse(login.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing groupware base URL %q: %w", login.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("groupware base URL %q must be absolute", login.BaseURL)
	}

	return &Session{
		login:    login,
		baseURL:  base,
		client:   newClient(timeout, false),
		noFollow: newClient(timeout, true),
		maxItems: maxItems,
		now:      time.Now,
		state:    StateUnauthenticated,
	}, nil
}

// newClient builds a resty client without a cookie jar; the session
// carries cookies explicitly between steps.
func newClient(timeout time.Duration, stopRedirects bool) *resty.Client {
	c := resty.New().
		SetTimeout(timeout).
		SetCookieJar(nil).
		SetHeader("User-Agent", userAgent)
	if stopRedirects {
		c.SetRedirectPolicy(resty.RedirectPolicyFunc(
			func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		))
	}
	return c
}

// State returns the protocol step the session has reached.
func (s *Session) State() State {
	return s.state
}

// Login runs steps 1 and 2: fetch the login page for an initial cookie,
// then post the credentials and merge any cookies returned. The post
// response's status code is returned for diagnostics.
func (s *Session) Login(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	base := s.baseURL.String()

	log.Debug("groupware: fetching login page", "url", base)
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHeader).
		Get(base)
	if err != nil {
		return 0, fmt.Errorf("fetching login page: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return resp.StatusCode(), source.Rejected(
			model.SourceGroupware,
			fmt.Sprintf("login page returned status %d", resp.StatusCode()),
			nil,
		)
	}
	s.cookies = mergeCookies(nil, resp.Cookies())

	resp, err = s.noFollow.R().
		SetContext(ctx).
		SetCookies(s.cookies).
		SetHeader("Referer", base).
		SetFormData(map[string]string{
			"_System":     "login",
			"_Login":      "1",
			"LoginMethod": "1",
			"_ID":         s.login.Username,
			"Password":    s.login.Password,
			"csrf_ticket": "",
		}).
		Post(base)
	s.state = StateLoginSubmitted
	if err != nil {
		return 0, fmt.Errorf("submitting login form: %w", err)
	}
	log.Debug("groupware: login attempt completed", "status", resp.StatusCode())
	if resp.StatusCode() >= http.StatusBadRequest {
		return resp.StatusCode(), source.Rejected(
			model.SourceGroupware,
			fmt.Sprintf("login returned status %d", resp.StatusCode()),
			nil,
		)
	}

	s.cookies = mergeCookies(s.cookies, resp.Cookies())
	s.state = StateSessionEstablished
	return resp.StatusCode(), nil
}

// FetchListing runs steps 3 to 5 on an established session. A listing
// that turns out to be the login form moves the session into
// StateAuthenticationFailed and yields no records and no error.
func (s *Session) FetchListing(ctx context.Context) ([]source.GroupwareRecord, error) {
	if s.state != StateSessionEstablished {
		return nil, fmt.Errorf("fetching listing in state %s", s.state)
	}
	log := logger.FromContext(ctx)
	base := s.baseURL.String()

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(listingQuery).
		SetCookies(s.cookies).
		SetHeader("Accept", acceptHeader).
		SetHeader("Referer", base).
		Get(base)
	if err != nil {
		return nil, fmt.Errorf("fetching notification page: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, source.Rejected(
			model.SourceGroupware,
			fmt.Sprintf("notification page returned status %d", resp.StatusCode()),
			nil,
		)
	}
	s.state = StatePageFetched

	body := resp.String()
	if IsLoginPage(body) {
		s.state = StateAuthenticationFailed
		log.Warn("groupware: authentication failed, listing redirected to login form")
		return nil, nil
	}

	records, err := ParseNotifications(body, s.baseURL, s.now(), s.maxItems)
	if err != nil {
		return nil, source.Rejected(model.SourceGroupware, "parsing notification page", err)
	}
	s.state = StateParsed
	log.Debug("groupware: parsed notifications", "count", len(records))
	return records, nil
}

// Run executes the full protocol once.
func (s *Session) Run(ctx context.Context) ([]source.GroupwareRecord, error) {
	if _, err := s.Login(ctx); err != nil {
		return nil, err
	}
	return s.FetchListing(ctx)
}

// IsLoginPage reports whether markup is the portal's login form.
func IsLoginPage(body string) bool {
	return strings.Contains(body, "_System=login") && strings.Contains(body, "Password")
}

// mergeCookies appends next onto prev; a later cookie replaces an
// earlier one with the same name.
func mergeCookies(prev, next []*http.Cookie) []*http.Cookie {
	merged := make([]*http.Cookie, 0, len(prev)+len(next))
	index := make(map[string]int, len(prev)+len(next))
	for _, c := range append(append([]*http.Cookie{}, prev...), next...) {
		if i, ok := index[c.Name]; ok {
			merged[i] = c
			continue
		}
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

// ResolveLink rewrites a listing href into an absolute URL. Absolute
// paths get the host prepended; relative links get the script directory.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return base.Scheme + "://" + base.Host + href
	default:
		dir := path.Dir(base.Path)
		if dir == "." {
			dir = "/"
		}
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		return base.Scheme + "://" + base.Host + dir + href
	}
}
