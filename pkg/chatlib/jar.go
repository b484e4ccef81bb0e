package chatlib

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Jar is an in-memory cookie jar scoped to one session. It is mutated
// only by Update and queried by HeaderFor. A session may issue
// concurrent requests, so the jar serializes access itself.
type Jar struct {
	mu      sync.Mutex
	cookies map[cookieKey]Cookie
	now     func() time.Time
}

// NewJar creates an empty cookie jar.
func NewJar() *Jar {
	return &Jar{
		cookies: make(map[cookieKey]Cookie),
		now:     time.Now,
	}
}

// Update applies the Set-Cookie headers of a response to the jar. The
// request URL seeds origin and default path for each parsed cookie and
// is the reference for domain/secure validation. Stored cookies whose
// expiry has passed are swept before the new headers are applied.
func (j *Jar) Update(setCookieHeaders []string, requestURL *url.URL) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for key, c := range j.cookies {
		if c.expired(now) {
			delete(j.cookies, key)
		}
	}

	for _, header := range setCookieHeaders {
		sc, ok := parseSetCookie(header, requestURL)
		if !ok {
			continue
		}
		key := sc.key()
		existing, found := j.cookies[key]
		if found {
			if sc.expired(now) {
				delete(j.cookies, key)
				continue
			}
			merged := merge(existing, sc)
			if !validForRequest(&merged, requestURL) {
				continue
			}
			j.cookies[key] = merged
			continue
		}
		if !validForRequest(&sc.Cookie, requestURL) {
			continue
		}
		j.cookies[key] = sc.Cookie
	}
}

// HeaderFor returns the Cookie header value for a request to targetURL:
// every stored cookie matching the domain, path, and protocol rules,
// joined as "name1=value1; name2=value2". Expired cookies are excluded
// but not removed; removal happens on the next Update.
func (j *Jar) HeaderFor(targetURL *url.URL) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	host := targetURL.Hostname()
	path := targetURL.Path
	if path == "" {
		path = "/"
	}

	var parts []string
	for _, c := range j.cookies {
		if c.expired(now) {
			continue
		}
		if c.Secure && targetURL.Scheme != "https" {
			continue
		}
		if !domainMatch(&c, host) {
			continue
		}
		if !pathMatch(c.Path, path) {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	// Map iteration order is random; keep the header stable.
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Seed inserts cookies directly, bypassing Set-Cookie parsing and
// request validation. Used to preload a jar from an imported browser
// cookie store.
func (j *Jar) Seed(cookies []Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
		j.cookies[c.key()] = c
	}
}

// Get returns the live cookie with the given name for the given host,
// if any. Lets callers probe for session cookies (the provider's "usr"
// cookie) without caring about path scoping.
func (j *Jar) Get(name, host string) (Cookie, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	for _, c := range j.cookies {
		if c.Name != name || c.expired(now) {
			continue
		}
		if domainMatch(&c, host) {
			return c, true
		}
	}
	return Cookie{}, false
}

// Len reports the number of stored cookies, expired entries included.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies)
}

// Clear empties the jar. Called on session shutdown so cookie state is
// released deterministically.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = make(map[cookieKey]Cookie)
}
