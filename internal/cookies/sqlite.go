package cookies

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sechat/sechat/pkg/chatlib"
	_ "modernc.org/sqlite"
)

// chromeEpochOffsetSeconds is the number of seconds between the Windows
// NT epoch (1601-01-01) and the Unix epoch (1970-01-01). Chrome stores
// expiry as microseconds since the former.
const chromeEpochOffsetSeconds int64 = 11_644_473_600

func chromeToUnix(chromeUSec int64) int64 {
	return (chromeUSec / 1_000_000) - chromeEpochOffsetSeconds
}

// parseFirefox reads cookies from a Firefox cookies.sqlite for the
// given domain. dbPath must point at a copied, not in-use, database.
func parseFirefox(dbPath, domain string) ([]chatlib.Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open Firefox cookie database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
        SELECT name, value, host, path, expiry, isSecure
        FROM moz_cookies
        WHERE (host = ? OR host = ? OR host LIKE ?)
          AND expiry > ?
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query Firefox cookies: %w", err)
	}
	defer rows.Close()

	var out []chatlib.Cookie
	for rows.Next() {
		var (
			name, value, host, path string
			expiry                  int64
			isSecure                int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &isSecure); err != nil {
			return nil, fmt.Errorf("failed to scan Firefox cookie row: %w", err)
		}
		c := storeCookie(name, value, host, path, isSecure != 0)
		c.Expires = time.Unix(expiry, 0)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate Firefox cookie rows: %w", err)
	}
	return out, nil
}

// parseChrome reads cookies from a Chrome Cookies SQLite file for the
// given domain. Only unencrypted cookies (value != ”) are returned.
// dbPath must point at a copied, not in-use, database.
func parseChrome(dbPath, domain string) ([]chatlib.Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("cannot open Chrome cookie database: %w", err)
	}
	defer db.Close()

	nowChrome := (time.Now().Unix() + chromeEpochOffsetSeconds) * 1_000_000
	rows, err := db.Query(`
        SELECT name, value, host_key, path, expires_utc, is_secure
        FROM cookies
        WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?)
          AND value != ''
          AND expires_utc > ?
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, nowChrome)
	if err != nil {
		return nil, fmt.Errorf("failed to query Chrome cookies: %w", err)
	}
	defer rows.Close()

	var out []chatlib.Cookie
	for rows.Next() {
		var (
			name, value, hostKey, path string
			expiresUTC                 int64
			isSecure                   int
		)
		if err := rows.Scan(&name, &value, &hostKey, &path, &expiresUTC, &isSecure); err != nil {
			return nil, fmt.Errorf("failed to scan Chrome cookie row: %w", err)
		}
		c := storeCookie(name, value, hostKey, path, isSecure != 0)
		c.Expires = time.Unix(chromeToUnix(expiresUTC), 0)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate Chrome cookie rows: %w", err)
	}
	return out, nil
}

// safeCopy copies a SQLite cookie file (and its -wal and -shm
// companions if present) to a temporary directory, so reads never race
// the browser that owns the database. The caller must call cleanup.
func safeCopy(srcPath string) (tempDir string, cleanup func(), err error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", nil, fmt.Errorf("cookie store not found: %s", srcPath)
	}
	if info.IsDir() || info.Size() == 0 {
		return "", nil, fmt.Errorf("cookie store at %s is not a usable file", srcPath)
	}

	tempDir, err = os.MkdirTemp("", "sechat-cookies-*")
	if err != nil {
		return "", nil, fmt.Errorf("cannot create temp directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(tempDir) }

	baseName := filepath.Base(srcPath)
	if err := copyFile(srcPath, filepath.Join(tempDir, baseName)); err != nil {
		cleanup()
		return "", nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		companion := srcPath + suffix
		if _, err := os.Stat(companion); err == nil {
			_ = copyFile(companion, filepath.Join(tempDir, baseName+suffix))
		}
	}
	return tempDir, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open source file %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("cannot copy %s: %w", src, err)
	}
	return nil
}
