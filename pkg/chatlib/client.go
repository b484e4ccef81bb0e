// Package chatlib implements an authenticated session engine for a web
// chat service: a cookie jar with RFC6265-style matching, a
// redirect-following transport that threads the jar through every
// request, a multi-step federated login state machine, and a push
// socket event dispatcher that fans multiplexed frames out to per-room
// listeners.
package chatlib

import (
	"context"
	"fmt"
	"time"

	"github.com/sechat/sechat/pkg/logger"
)

// Config is the immutable per-client configuration. Credentials are
// scoped to one client; nothing here is shared or mutated after
// construction.
type Config struct {
	// Host is the target site, e.g. "stackoverflow.com".
	Host string

	// Email and Password authenticate against the identity provider.
	Email    string
	Password string

	// UserAgent overrides the default request User-Agent when set.
	UserAgent string

	// Timeout bounds each HTTP round-trip. Zero keeps the default.
	Timeout time.Duration

	// Routes overrides the endpoint table; nil uses DefaultRoutes(Host).
	// Tests point this at local servers.
	Routes *Routes

	// Extractor overrides the page-extractor collaborator; nil uses the
	// built-in x/net/html one.
	Extractor Extractor

	// Logger receives transport/session/dispatcher logs; nil discards.
	Logger logger.Logger
}

// Client ties a session together: one jar, one transport, one login
// state machine, and one event dispatcher. Cookies are never shared
// between clients.
type Client struct {
	cfg        Config
	jar        *Jar
	browser    *Browser
	session    *Session
	dispatcher *Dispatcher
	log        logger.Logger
}

// NewClient creates a client for the configured host. No network
// traffic happens until Login.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("config: host is required")
	}
	if cfg.Routes == nil {
		cfg.Routes = DefaultRoutes(cfg.Host)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	jar := NewJar()
	browser := NewBrowser(jar, cfg.Extractor, cfg.Logger)
	if cfg.UserAgent != "" {
		browser.SetUserAgent(cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		browser.SetTimeout(cfg.Timeout)
	}

	return &Client{
		cfg:        cfg,
		jar:        jar,
		browser:    browser,
		session:    NewSession(browser, cfg.Routes, cfg.Logger),
		dispatcher: NewDispatcher(browser, cfg.Routes, cfg.Logger),
		log:        cfg.Logger,
	}, nil
}

// Jar exposes the client's cookie jar, e.g. for seeding it from an
// imported browser cookie store.
func (c *Client) Jar() *Jar {
	return c.jar
}

// Browser exposes the client's transport for plain authenticated
// requests outside the chat protocol.
func (c *Client) Browser() *Browser {
	return c.browser
}

// Identity returns the authenticated identity; zero until Login
// succeeds.
func (c *Client) Identity() Identity {
	return c.session.Identity()
}

// LoggedIn reports whether Login completed.
func (c *Client) LoggedIn() bool {
	return c.session.LoggedIn()
}

// Login runs the federated login chain with the configured
// credentials. On failure the error is a *LoginError carrying the
// furthest state reached; the client must be recreated to retry.
func (c *Client) Login(ctx context.Context) error {
	return c.session.Login(ctx, c.cfg.Email, c.cfg.Password)
}

// Join joins a room and returns its handle. Requires a completed
// login. The room page carries the freshest action token; when it
// cannot be read the session's own token signs the join instead.
func (c *Client) Join(ctx context.Context, roomID int64) (*Room, error) {
	if !c.session.LoggedIn() {
		return nil, fmt.Errorf("cannot join room %d@%s: %w", roomID, c.cfg.Host, ErrNotLoggedIn)
	}
	fkey, err := c.browser.Fetch(ctx, c.cfg.Routes.RoomPage(roomID), fkeySelector, "value")
	if err != nil || fkey == "" {
		fkey = c.session.Identity().FKey
	}
	return c.dispatcher.Join(ctx, roomID, fkey)
}

// Shutdown closes every joined room's socket, waits for the read loops
// to finish, and releases the cookie jar.
func (c *Client) Shutdown() {
	c.dispatcher.Shutdown()
	c.jar.Clear()
}
