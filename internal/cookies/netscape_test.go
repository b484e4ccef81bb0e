package cookies

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/sechat/sechat/pkg/logger"
)

func writeMemFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %s", path, err.Error())
	}
}

func TestParseNetscape(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Unix()
	past := time.Now().Add(-24 * time.Hour).Unix()

	content := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"# This is a generated file! Do not edit.",
		"",
		fmt.Sprintf(".stackoverflow.com\tTRUE\t/\tTRUE\t%d\tacct\tsecret", future),
		fmt.Sprintf("chat.stackoverflow.com\tFALSE\t/rooms\tFALSE\t%d\tchatusr\tabc", future),
		fmt.Sprintf("#HttpOnly_.stackoverflow.com\tTRUE\t/\tFALSE\t%d\tprov\txyz", future),
		fmt.Sprintf(".stackoverflow.com\tTRUE\t/\tFALSE\t%d\told\tgone", past),
		fmt.Sprintf(".stackexchange.com\tTRUE\t/\tFALSE\t%d\tother\tsite", future),
		".stackoverflow.com\tTRUE\t/\tFALSE\tsession\tbad-expiry",
		"not a cookie line",
		".stackoverflow.com\tTRUE\t/\tFALSE\t0\tsess\tlive",
	}, "\n")

	fsys := afero.NewMemMapFs()
	writeMemFile(t, fsys, "/cookies.txt", content)

	log := logger.NewMockLogger()
	got, err := parseNetscape(fsys, "/cookies.txt", "stackoverflow.com", log)
	if err != nil {
		t.Fatalf("parse failed: %s", err.Error())
	}

	byName := make(map[string]int)
	for _, c := range got {
		byName[c.Name]++
	}
	for _, want := range []string{"acct", "chatusr", "prov", "sess"} {
		if byName[want] != 1 {
			t.Errorf("cookie %q: got %d, want 1", want, byName[want])
		}
	}
	for _, unwanted := range []string{"old", "other", "session"} {
		if byName[unwanted] != 0 {
			t.Errorf("cookie %q should have been skipped", unwanted)
		}
	}

	// The short line and the free-text line are both malformed.
	if len(log.WarningCalls) != 2 {
		t.Errorf("warnings: got %v", log.WarningCalls)
	}

	for _, c := range got {
		switch c.Name {
		case "acct":
			if c.Domain != "stackoverflow.com" || !c.Secure {
				t.Errorf("acct: %+v", c)
			}
		case "chatusr":
			if c.Domain != "" || c.Origin != "chat.stackoverflow.com" || c.Path != "/rooms" {
				t.Errorf("chatusr: %+v", c)
			}
		case "sess":
			if !c.Expires.IsZero() {
				t.Errorf("zero-expiry cookie must be a session cookie: %+v", c)
			}
		}
	}
}

func TestParseNetscapeMissingFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if _, err := parseNetscape(fsys, "/missing.txt", "stackoverflow.com", logger.NewNopLogger()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStoreDomainMatch(t *testing.T) {
	tests := []struct {
		host   string
		domain string
		want   bool
	}{
		{"stackoverflow.com", "stackoverflow.com", true},
		{".stackoverflow.com", "stackoverflow.com", true},
		{"chat.stackoverflow.com", "stackoverflow.com", true},
		{".chat.stackoverflow.com", "stackoverflow.com", true},
		{"stackexchange.com", "stackoverflow.com", false},
		{"notstackoverflow.com", "stackoverflow.com", false},
	}
	for _, tt := range tests {
		if got := storeDomainMatch(tt.host, tt.domain); got != tt.want {
			t.Errorf("storeDomainMatch(%q, %q) = %v, want %v", tt.host, tt.domain, got, tt.want)
		}
	}
}
