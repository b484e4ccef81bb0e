package chatlib

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a single cookie held by a Jar. Origin is the hostname of the
// request that set the cookie; Domain is only set when the Set-Cookie
// header carried an explicit domain attribute (leading dot stripped).
type Cookie struct {
	Name    string
	Value   string
	Origin  string
	Path    string
	Domain  string
	Expires time.Time
	Secure  bool
}

// setCookie is a parsed Set-Cookie header. The has* flags record which
// attributes the header actually specified, so a merge only overrides
// fields the incoming cookie carries.
type setCookie struct {
	Cookie
	hasDomain  bool
	hasPath    bool
	hasExpires bool
	hasSecure  bool
}

// expired reports whether the cookie has an expiry in the past relative
// to now. Cookies without an expiry are session cookies and never expire.
func (c *Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// key returns the jar identity of the cookie: (name, domain-or-origin, path).
func (c *Cookie) key() cookieKey {
	domain := c.Domain
	if domain == "" {
		domain = c.Origin
	}
	return cookieKey{name: c.Name, domain: domain, path: c.Path}
}

type cookieKey struct {
	name   string
	domain string
	path   string
}

// cookieDateLayouts are the expires formats seen in the wild beyond the
// ones net/http.ParseTime already knows.
var cookieDateLayouts = []string{
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02-Jan-06 15:04:05 MST",
}

func parseCookieDate(value string) (time.Time, bool) {
	if t, err := http.ParseTime(value); err == nil {
		return t, true
	}
	for _, layout := range cookieDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSetCookie parses a single Set-Cookie header value. The request URL
// seeds the cookie's origin and default path. Max-Age is deliberately
// unsupported; only the attributes below are recognized.
func parseSetCookie(header string, requestURL *url.URL) (setCookie, bool) {
	var sc setCookie
	parts := strings.Split(header, ";")
	if len(parts) == 0 {
		return sc, false
	}

	first := strings.TrimSpace(parts[0])
	eq := strings.IndexByte(first, '=')
	if eq <= 0 {
		return sc, false
	}
	sc.Name = first[:eq]
	sc.Value = first[eq+1:]
	sc.Origin = requestURL.Hostname()
	sc.Path = defaultCookiePath(requestURL.Path)

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var attrKey, attrVal string
		if i := strings.IndexByte(part, '='); i >= 0 {
			attrKey, attrVal = part[:i], part[i+1:]
		} else {
			attrKey = part
		}
		switch strings.ToLower(attrKey) {
		case "expires":
			if t, ok := parseCookieDate(attrVal); ok {
				sc.Expires = t
				sc.hasExpires = true
			}
		case "domain":
			// A trailing dot invalidates the whole attribute. A leading
			// dot is legacy syntax and is stripped.
			if strings.HasSuffix(attrVal, ".") {
				break
			}
			domain := strings.TrimPrefix(attrVal, ".")
			if domain != "" {
				sc.Domain = domain
				sc.hasDomain = true
			}
		case "path":
			sc.Path = normalizeCookiePath(attrVal)
			sc.hasPath = true
		case "secure":
			sc.Secure = true
			sc.hasSecure = true
		}
	}
	return sc, true
}

// normalizeCookiePath reduces a path attribute to its directory form.
// A value that parses as an absolute URL contributes only its path
// component. Anything that does not start with "/" or has a single
// segment collapses to "/"; otherwise the last segment is dropped.
func normalizeCookiePath(value string) string {
	if u, err := url.Parse(value); err == nil && u.IsAbs() {
		value = u.Path
	}
	if !strings.HasPrefix(value, "/") {
		return "/"
	}
	if len(strings.Split(value, "/")) == 2 {
		return "/"
	}
	return value[:strings.LastIndexByte(value, '/')]
}

// defaultCookiePath derives the default path from the request URL,
// dropping the last segment the same way an explicit attribute would.
func defaultCookiePath(requestPath string) string {
	if !strings.HasPrefix(requestPath, "/") {
		return "/"
	}
	if len(strings.Split(requestPath, "/")) == 2 {
		return "/"
	}
	return requestPath[:strings.LastIndexByte(requestPath, '/')]
}

// merge produces the cookie that results from an update to an existing
// jar entry. Only the fields the incoming header actually specified
// override the existing values; the value itself always does.
func merge(existing Cookie, incoming setCookie) Cookie {
	out := existing
	out.Value = incoming.Value
	out.Origin = incoming.Origin
	if incoming.hasDomain {
		out.Domain = incoming.Domain
	}
	if incoming.hasPath {
		out.Path = incoming.Path
	}
	if incoming.hasExpires {
		out.Expires = incoming.Expires
	}
	if incoming.hasSecure {
		out.Secure = incoming.Secure
	}
	return out
}

// validForRequest reports whether a cookie may be committed to the jar
// by a response to requestURL. A response must not set a cookie for an
// unrelated domain, and a secure cookie must come over https.
func validForRequest(c *Cookie, requestURL *url.URL) bool {
	if c.Secure && requestURL.Scheme != "https" {
		return false
	}
	if c.Domain == "" {
		return true
	}
	return domainMatch(c, requestURL.Hostname())
}

// domainMatch implements the jar's domain rule. Without an explicit
// domain the cookie is host-only: exact equality with the origin. With
// one, the registrable domains must be equal and any subdomain labels
// the cookie carries must prefix-match the target's labels, compared
// label by label from the right.
func domainMatch(c *Cookie, targetHost string) bool {
	if c.Domain == "" {
		return strings.EqualFold(targetHost, c.Origin)
	}
	cookieReg, err := publicsuffix.EffectiveTLDPlusOne(c.Domain)
	if err != nil {
		return false
	}
	targetReg, err := publicsuffix.EffectiveTLDPlusOne(targetHost)
	if err != nil {
		return false
	}
	if !strings.EqualFold(cookieReg, targetReg) {
		return false
	}
	cookieSub := reverseLabels(trimRegistrable(c.Domain, cookieReg))
	targetSub := reverseLabels(trimRegistrable(targetHost, targetReg))
	if len(cookieSub) > len(targetSub) {
		return false
	}
	for i, label := range cookieSub {
		if !strings.EqualFold(label, targetSub[i]) {
			return false
		}
	}
	return true
}

func trimRegistrable(host, registrable string) string {
	sub := strings.TrimSuffix(host, registrable)
	return strings.TrimSuffix(sub, ".")
}

func reverseLabels(sub string) []string {
	if sub == "" {
		return nil
	}
	labels := strings.Split(sub, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// pathMatch reports whether the cookie's path is a segment-wise prefix
// of the target path: every non-empty cookie segment must equal the
// corresponding target segment.
func pathMatch(cookiePath, targetPath string) bool {
	cookieSegs := strings.Split(cookiePath, "/")
	targetSegs := strings.Split(targetPath, "/")
	for i, seg := range cookieSegs {
		if seg == "" {
			continue
		}
		if i >= len(targetSegs) || targetSegs[i] != seg {
			return false
		}
	}
	return true
}
