package chatlib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sechat/sechat/pkg/logger"
)

const (
	// maxRedirects bounds the redirect chain a single Get/Post may
	// follow. Legitimate login chains are 3-4 hops; anything past
	// this is a loop.
	maxRedirects = 10

	defaultUserAgent = "Mozilla/5.0 (compatible; github.com/sechat/sechat)"

	defaultTimeout = 30 * time.Second
)

// Browser issues cookie-carrying HTTP requests and follows redirects,
// threading one Jar through every request of a session. It is the only
// component that talks plain HTTP; the session and dispatcher build on
// top of it.
type Browser struct {
	Jar *Jar

	client    *http.Client
	extractor Extractor
	userAgent string
	log       logger.Logger
}

// NewBrowser creates a transport around the given jar. A nil jar gets a
// fresh one; nil extractor/logger fall back to the defaults.
func NewBrowser(jar *Jar, extractor Extractor, log logger.Logger) *Browser {
	if jar == nil {
		jar = NewJar()
	}
	if extractor == nil {
		extractor = NewHTMLExtractor()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Browser{
		Jar:       jar,
		extractor: extractor,
		userAgent: defaultUserAgent,
		log:       log,
		client: &http.Client{
			Timeout: defaultTimeout,
			// Redirects are handled by handleResponse so the jar sees
			// every intermediate Set-Cookie header.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// SetTimeout overrides the per-request timeout.
func (b *Browser) SetTimeout(d time.Duration) {
	b.client.Timeout = d
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (b *Browser) SetUserAgent(ua string) {
	b.userAgent = ua
}

// HTTPClient exposes the underlying client so the websocket dial can
// reuse its transport and timeout settings.
func (b *Browser) HTTPClient() *http.Client {
	return b.client
}

// Get sends a GET request, threading cookies and following redirects to
// the final page. Query parameters are appended to the URL.
func (b *Browser) Get(ctx context.Context, rawURL string, query url.Values) (*Page, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	return b.request(ctx, http.MethodGet, rawURL, nil, 0)
}

// Post sends a form-encoded POST request, threading cookies and
// following redirects to the final page.
func (b *Browser) Post(ctx context.Context, rawURL string, form url.Values) (*Page, error) {
	return b.request(ctx, http.MethodPost, rawURL, form, 0)
}

func (b *Browser) request(ctx context.Context, method, rawURL string, form url.Values, hops int) (*Page, error) {
	reqURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", b.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie := b.Jar.HeaderFor(reqURL); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	b.Jar.Update(resp.Header.Values("Set-Cookie"), reqURL)

	return b.handleResponse(ctx, resp, reqURL, string(raw), hops)
}

// handleResponse follows a Location header if one is present and builds
// the final Page otherwise. The location is tried as an absolute URL
// first, then resolved relative to the current URL. A bad location is
// logged and the current page returned instead of failing the call.
func (b *Browser) handleResponse(ctx context.Context, resp *http.Response, reqURL *url.URL, body string, hops int) (*Page, error) {
	location := resp.Header.Get("Location")
	if location != "" {
		if hops >= maxRedirects {
			return nil, fmt.Errorf("%w: %d hops ending at %s", ErrTooManyRedirects, hops, reqURL)
		}
		target := location
		if !strings.HasPrefix(location, "http:") && !strings.HasPrefix(location, "https:") {
			ref, err := url.Parse(location)
			if err == nil {
				target = reqURL.ResolveReference(ref).String()
			}
		}
		page, err := b.request(ctx, http.MethodGet, target, nil, hops+1)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, err
		}
		b.log.Warning("redirect to %q failed: %s", location, err.Error())
	}

	page := &Page{
		Location: reqURL,
		Response: resp,
		Source:   body,
	}
	// Both decodes are best-effort: most pages are HTML, some endpoints
	// return JSON, and neither failing is an error.
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		page.JSON = decoded
	}
	if doc, err := b.extractor.Parse(body); err == nil {
		page.Doc = doc
	}
	return page, nil
}

// Extract runs the page-extractor collaborator against a page.
func (b *Browser) Extract(page *Page, selector, attribute string) (string, bool) {
	if page == nil || page.Doc == nil {
		return "", false
	}
	return b.extractor.Extract(page.Doc, selector, attribute)
}

// Fetch gets a page and extracts a single attribute from it. Redirects
// and cookies are handled as in Get.
func (b *Browser) Fetch(ctx context.Context, rawURL, selector, attribute string) (string, error) {
	page, err := b.Get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	value, ok := b.Extract(page, selector, attribute)
	if !ok {
		return "", fmt.Errorf("%w: %s at %s", ErrMissingToken, selector, page.Location)
	}
	return value, nil
}
