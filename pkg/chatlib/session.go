package chatlib

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sechat/sechat/pkg/logger"
)

// AuthState is the login state machine's position. It only ever moves
// forward; a failed login is terminal and a new session must restart
// from StateAnonymous.
type AuthState int

const (
	StateAnonymous AuthState = iota
	StateKeyFetched
	StateProviderAuthenticated
	StateSiteKeyFetched
	StateSiteAuthenticated
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateKeyFetched:
		return "key fetched"
	case StateProviderAuthenticated:
		return "provider authenticated"
	case StateSiteKeyFetched:
		return "site key fetched"
	case StateSiteAuthenticated:
		return "site authenticated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("AuthState(%d)", int(s))
}

// fkeySelector finds the hidden anti-forgery field on login pages and
// the chat home page.
const fkeySelector = "input[name='fkey']"

// Identity is what a completed login yields: the values every
// subsequent chat action needs.
type Identity struct {
	FKey        string
	DisplayName string
	UserID      string
}

// Session drives the multi-step federated login against the provider
// and the target site. Success at each step is judged purely by the
// final URL of the transport call, never by status code or body
// content beyond token extraction; that is the observed contract of
// the upstream service.
type Session struct {
	browser *Browser
	routes  *Routes
	log     logger.Logger

	state    AuthState
	identity Identity
}

// NewSession creates a session in the anonymous state.
func NewSession(browser *Browser, routes *Routes, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		browser: browser,
		routes:  routes,
		log:     log,
		state:   StateAnonymous,
	}
}

// State reports the session's current state.
func (s *Session) State() AuthState {
	return s.state
}

// Identity returns the authenticated identity. Only meaningful once
// State() is StateSiteAuthenticated.
func (s *Session) Identity() Identity {
	return s.identity
}

// LoggedIn reports whether the login chain completed.
func (s *Session) LoggedIn() bool {
	return s.state == StateSiteAuthenticated
}

// Login runs the full login chain. On failure the returned error is a
// *LoginError carrying the furthest state reached; the session stays
// failed and cannot be reused.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if s.state != StateAnonymous {
		return s.fail(fmt.Errorf("login already attempted (state %s)", s.state))
	}

	key, err := s.fetchKey(ctx, s.routes.ProviderLoginPage)
	if err != nil {
		return s.fail(err)
	}
	s.state = StateKeyFetched

	if err := s.providerLogin(ctx, email, password, key); err != nil {
		return s.fail(err)
	}
	s.state = StateProviderAuthenticated
	s.log.Info("provider login ok")

	siteKey, err := s.fetchKey(ctx, s.routes.SiteLoginPage)
	if err != nil {
		return s.fail(err)
	}
	s.state = StateSiteKeyFetched

	if err := s.siteLogin(ctx, siteKey); err != nil {
		return s.fail(err)
	}

	if err := s.fetchProfile(ctx); err != nil {
		// The login step itself succeeded, but without the profile
		// fragment no chat action can be signed. Fatal.
		return s.fail(err)
	}
	s.state = StateSiteAuthenticated
	s.log.Info("logged in as %s (id %s)", s.identity.DisplayName, s.identity.UserID)
	return nil
}

func (s *Session) fail(err error) error {
	lerr := &LoginError{State: s.state, Err: err}
	s.state = StateFailed
	return lerr
}

// fetchKey gets a page and extracts the anti-forgery token from it.
func (s *Session) fetchKey(ctx context.Context, pageURL string) (string, error) {
	page, err := s.browser.Get(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}
	key, ok := s.browser.Extract(page, fkeySelector, "value")
	if !ok || key == "" {
		return "", fmt.Errorf("%w at %s", ErrMissingToken, page.Location)
	}
	return key, nil
}

// providerLogin posts credentials to the identity provider. The
// provider answers 200 on both outcomes; landing on the confirmation
// URL is the success signal. As a second check the provider must have
// issued its "usr" session cookie.
func (s *Session) providerLogin(ctx context.Context, email, password, key string) error {
	page, err := s.browser.Post(ctx, s.routes.ProviderLoginSubmit, url.Values{
		"email":    {email},
		"password": {password},
		"fkey":     {key},
	})
	if err != nil {
		return err
	}
	if page.Location.String() != s.routes.ProviderConfirm {
		return fmt.Errorf("%w: landed at %s", ErrInvalidCredentials, page.Location)
	}
	if _, ok := s.browser.Jar.Get("usr", page.Location.Hostname()); !ok {
		return fmt.Errorf("%w: provider set no session cookie", ErrInvalidCredentials)
	}
	return nil
}

// siteLogin presents the provider authentication to the target site.
func (s *Session) siteLogin(ctx context.Context, key string) error {
	page, err := s.browser.Post(ctx, s.routes.SiteAuthenticate, url.Values{
		"oauth_version":     {""},
		"oauth_server":      {""},
		"openid_identifier": {ProviderIdentifier},
		"fkey":              {key},
	})
	if err != nil {
		return err
	}
	if page.Location.String() != s.routes.SiteConfirm {
		return fmt.Errorf("%w: landed at %s", ErrInvalidCredentials, page.Location)
	}
	return nil
}

// fetchProfile pulls the chat home page and extracts the action token,
// display name, and user id from the profile fragment.
func (s *Session) fetchProfile(ctx context.Context) error {
	page, err := s.browser.Get(ctx, s.routes.ChatHome(), nil)
	if err != nil {
		return err
	}
	fkey, ok := s.browser.Extract(page, fkeySelector, "value")
	if !ok || fkey == "" {
		return fmt.Errorf("%w: no fkey on chat home", ErrIncompleteProfile)
	}
	name, ok := s.browser.Extract(page, ".topbar-menu-links a", "")
	if !ok || name == "" {
		return fmt.Errorf("%w: no display name on chat home", ErrIncompleteProfile)
	}
	href, ok := s.browser.Extract(page, ".topbar-menu-links a", "href")
	if !ok {
		return fmt.Errorf("%w: no profile link on chat home", ErrIncompleteProfile)
	}
	id, err := userIDFromHref(href)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIncompleteProfile, err.Error())
	}
	s.identity = Identity{FKey: fkey, DisplayName: name, UserID: id}
	return nil
}

// userIDFromHref extracts the user id from a profile link of the form
// "/users/123/name": the second-to-last path segment.
func userIDFromHref(href string) (string, error) {
	parts := strings.Split(href, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("malformed profile link %q", href)
	}
	id := parts[len(parts)-2]
	if id == "" {
		return "", fmt.Errorf("malformed profile link %q", href)
	}
	return id, nil
}
