package savemyexams

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/iamfaazi/savemyexam-downloader/internal/http"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the site root.
	DefaultBaseURL = "https://www.savemyexams.com"
	// DefaultNavigationTimeout bounds every page load.
	DefaultNavigationTimeout = 5 * time.Second

	loginPath   = "/login/?method=email-password"
	membersPath = "/members"
)

var (
	// ErrAuthentication is returned when the site rejects the credentials or
	// the members area is not reachable after logging in.
	ErrAuthentication = errors.New("authentication failed")

	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("account email and password are required")
)

// Credentials identify a site account.
type Credentials struct {
	Email    string
	Password string
}

// Options configures a Session.
type Options struct {
	BaseURL           string
	NavigationTimeout time.Duration
	UserAgent         string
}

// DefaultOptions returns the production site settings.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		NavigationTimeout: DefaultNavigationTimeout,
		UserAgent:         http.DefaultUserAgent,
	}
}

// Session is a logged-in browsing context. It owns the cookie jar and the
// HTTP client every page load and file transfer goes through.
type Session struct {
	client   *http.Client
	opts     Options
	greeting string
}

// Login opens a session with the given credentials.
//
// A timeout while waiting for the post-login redirect is not an error; the
// login is then confirmed by loading the members area, and a missing user
// greeting there means the credentials were rejected.
func Login(ctx context.Context, creds Credentials, opts Options) (*Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	opts = opts.withDefaults()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &Session{
		client: http.NewClient(http.WithCookieJar(jar), http.WithUserAgent(opts.UserAgent)),
		opts:   opts,
	}

	loginURL := opts.BaseURL + loginPath
	if _, err := s.fetch(ctx, loginURL); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: open login page: %w", ErrAuthentication, err)
	}

	if err := s.submit(ctx, loginURL, creds); err != nil {
		s.Close()
		return nil, err
	}

	doc, err := s.fetch(ctx, opts.BaseURL+membersPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: open members area: %w", ErrAuthentication, err)
	}
	greeting := strings.TrimSpace(doc.Find(selGreeting).First().Text())
	if greeting == "" {
		s.Close()
		return nil, fmt.Errorf("%w: members area shows no user greeting", ErrAuthentication)
	}
	s.greeting = greeting

	log.Info().Str("greeting", greeting).Msg("logged in")
	return s, nil
}

func (s *Session) submit(ctx context.Context, loginURL string, creds Credentials) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	resp, err := s.client.PostForm(navCtx, loginURL, url.Values{
		"email":    {creds.Email},
		"password": {creds.Password},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			log.Warn().Msg("login timeout, continuing")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: login returned HTTP %d", ErrAuthentication, resp.StatusCode)
	}
	return nil
}

// Greeting returns the user greeting shown in the members area.
func (s *Session) Greeting() string {
	return s.greeting
}

// Client returns the session's HTTP client, for file transfers.
func (s *Session) Client() *http.Client {
	return s.client
}

// Locator returns a content locator that browses with this session.
func (s *Session) Locator() *Locator {
	return NewLocator(s.client, s.opts)
}

// Close releases idle connections. The session must not be used afterwards.
func (s *Session) Close() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

// fetch loads and parses a page within the navigation timeout.
func (s *Session) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return fetchDocument(ctx, s.client, pageURL, s.opts.NavigationTimeout)
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string, timeout time.Duration) (*goquery.Document, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	doc.Url, _ = url.Parse(pageURL)
	return doc, nil
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	return o
}
