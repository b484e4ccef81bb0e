package cookies

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// newFirefoxDB builds a minimal cookies.sqlite in a temp dir.
func newFirefoxDB(t *testing.T, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %s", err.Error())
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE moz_cookies (
		name TEXT, value TEXT, host TEXT, path TEXT,
		expiry INTEGER, isSecure INTEGER
	)`)
	if err != nil {
		t.Fatalf("create table: %s", err.Error())
	}
	for _, row := range rows {
		_, err = db.Exec(`INSERT INTO moz_cookies VALUES (?, ?, ?, ?, ?, ?)`, row...)
		if err != nil {
			t.Fatalf("insert row: %s", err.Error())
		}
	}
	return path
}

// newChromeDB builds a minimal Chrome Cookies database in a temp dir.
func newChromeDB(t *testing.T, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cookies")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %s", err.Error())
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE cookies (
		name TEXT, value TEXT, host_key TEXT, path TEXT,
		expires_utc INTEGER, is_secure INTEGER
	)`)
	if err != nil {
		t.Fatalf("create table: %s", err.Error())
	}
	for _, row := range rows {
		_, err = db.Exec(`INSERT INTO cookies VALUES (?, ?, ?, ?, ?, ?)`, row...)
		if err != nil {
			t.Fatalf("insert row: %s", err.Error())
		}
	}
	return path
}

func TestImportFirefox(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Unix()
	past := time.Now().Add(-24 * time.Hour).Unix()
	path := newFirefoxDB(t, [][]any{
		{"acct", "secret", ".stackoverflow.com", "/", future, 1},
		{"chatusr", "abc", "chat.stackoverflow.com", "/", future, 0},
		{"old", "gone", ".stackoverflow.com", "/", past, 0},
		{"other", "site", ".stackexchange.com", "/", future, 0},
	})

	got, source, err := Import(afero.NewOsFs(), path, "stackoverflow.com", nil)
	if err != nil {
		t.Fatalf("import failed: %s", err.Error())
	}
	if source.Format != FormatFirefox || source.Browser != "Firefox" {
		t.Errorf("source: %+v", source)
	}
	if len(got) != 2 {
		t.Fatalf("cookies: got %d, want 2", len(got))
	}
	for _, c := range got {
		switch c.Name {
		case "acct":
			if c.Domain != "stackoverflow.com" || !c.Secure {
				t.Errorf("acct: %+v", c)
			}
		case "chatusr":
			if c.Domain != "" || c.Origin != "chat.stackoverflow.com" {
				t.Errorf("chatusr: %+v", c)
			}
		default:
			t.Errorf("unexpected cookie %q", c.Name)
		}
	}
}

func TestImportChrome(t *testing.T) {
	futureChrome := (time.Now().Add(24*time.Hour).Unix() + chromeEpochOffsetSeconds) * 1_000_000
	path := newChromeDB(t, [][]any{
		{"acct", "secret", ".stackoverflow.com", "/", futureChrome, 1},
		{"enc", "", ".stackoverflow.com", "/", futureChrome, 0},
	})

	got, source, err := Import(afero.NewOsFs(), path, "stackoverflow.com", nil)
	if err != nil {
		t.Fatalf("import failed: %s", err.Error())
	}
	if source.Format != FormatChrome || source.Browser != "Chrome" {
		t.Errorf("source: %+v", source)
	}
	// The encrypted (empty-value) cookie is unusable and skipped.
	if len(got) != 1 || got[0].Name != "acct" {
		t.Fatalf("cookies: %+v", got)
	}
	if got[0].Expires.Before(time.Now()) {
		t.Errorf("expiry conversion wrong: %s", got[0].Expires)
	}
}

func TestChromeToUnix(t *testing.T) {
	// 1970-01-01 in Chrome time is exactly the epoch offset.
	if got := chromeToUnix(chromeEpochOffsetSeconds * 1_000_000); got != 0 {
		t.Errorf("epoch: got %d", got)
	}
}

func TestSafeCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cookies.sqlite")
	if err := os.WriteFile(src, []byte("SQLite format 3\x00data"), 0600); err != nil {
		t.Fatalf("write source: %s", err.Error())
	}
	if err := os.WriteFile(src+"-wal", []byte("wal"), 0600); err != nil {
		t.Fatalf("write wal: %s", err.Error())
	}

	tempDir, cleanup, err := safeCopy(src)
	if err != nil {
		t.Fatalf("safeCopy failed: %s", err.Error())
	}

	copied := filepath.Join(tempDir, "cookies.sqlite")
	data, err := os.ReadFile(copied)
	if err != nil || string(data) != "SQLite format 3\x00data" {
		t.Errorf("copied content: %q, %v", data, err)
	}
	if _, err := os.Stat(copied + "-wal"); err != nil {
		t.Errorf("wal companion not copied: %s", err.Error())
	}

	cleanup()
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Error("cleanup left the temp dir behind")
	}
}

func TestSafeCopyErrors(t *testing.T) {
	if _, _, err := safeCopy(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing source")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatalf("write empty: %s", err.Error())
	}
	if _, _, err := safeCopy(empty); err == nil {
		t.Error("expected error for empty source")
	}
}
