package cookies

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sechat/sechat/pkg/chatlib"
	"github.com/sechat/sechat/pkg/logger"
)

// parseNetscape reads cookies from a Netscape-format cookies.txt for
// the given domain. Lines starting with # are comments, except
// #HttpOnly_ which prefixes an otherwise normal line. Malformed lines
// are skipped with a warning.
func parseNetscape(fsys afero.Fs, path, domain string, log logger.Logger) ([]chatlib.Cookie, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open Netscape cookie file: %w", err)
	}
	defer f.Close()

	now := time.Now()
	var out []chatlib.Cookie

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = line[len("#HttpOnly_"):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			log.Warning("skipping malformed cookie line: %q", line)
			continue
		}

		host := fields[0]
		// fields[1] is the subdomain flag; the leading dot on the host
		// carries the same information.
		path := fields[2]
		secure := strings.EqualFold(fields[3], "TRUE")
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			log.Warning("skipping cookie with invalid expiry: %q", fields[4])
			continue
		}
		name := fields[5]
		value := fields[6]

		if !storeDomainMatch(host, domain) {
			continue
		}
		if expiry > 0 && time.Unix(expiry, 0).Before(now) {
			continue
		}

		c := storeCookie(name, value, host, path, secure)
		if expiry > 0 {
			c.Expires = time.Unix(expiry, 0)
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Netscape cookie file: %w", err)
	}
	return out, nil
}

// storeDomainMatch reports whether a stored cookie host belongs to the
// target domain: exact, dot-prefixed, or a subdomain of it.
func storeDomainMatch(host, domain string) bool {
	dotDomain := "." + domain
	return host == domain || host == dotDomain || strings.HasSuffix(host, dotDomain)
}

// storeCookie maps a browser-store row onto a jar cookie. A leading dot
// on the host marks a domain cookie; without one the cookie is
// host-only and only the origin is set.
func storeCookie(name, value, host, path string, secure bool) chatlib.Cookie {
	c := chatlib.Cookie{
		Name:   name,
		Value:  value,
		Path:   path,
		Secure: secure,
	}
	if strings.HasPrefix(host, ".") {
		c.Domain = strings.TrimPrefix(host, ".")
		c.Origin = c.Domain
	} else {
		c.Origin = host
	}
	return c
}
