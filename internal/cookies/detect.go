package cookies

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"
)

// Format identifies the layout of a browser cookie store.
type Format int

const (
	// FormatUnknown means the store format could not be detected.
	FormatUnknown Format = iota
	// FormatFirefox is the Firefox moz_cookies SQLite schema.
	FormatFirefox
	// FormatChrome is the Chrome cookies SQLite schema. Only
	// unencrypted cookies (value != ”) are usable.
	FormatChrome
	// FormatNetscape is the tab-separated cookies.txt text format.
	FormatNetscape
)

// sqliteMagic is the first 16 bytes of any SQLite database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// Detect determines the cookie store format of the file at path. SQLite
// stores are told apart by which cookie table their schema carries.
func Detect(fsys afero.Fs, path string) (Format, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cookie store not found: %s", path)
	}
	if info.IsDir() {
		return FormatUnknown, fmt.Errorf("%s is a directory, expected a cookie store file", path)
	}
	if info.Size() == 0 {
		return FormatUnknown, fmt.Errorf("cookie store at %s is empty", path)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open cookie store: %w", err)
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot read cookie store: %w", err)
	}
	header = header[:n]

	if n >= len(sqliteMagic) && string(header[:len(sqliteMagic)]) == string(sqliteMagic) {
		return detectSQLiteFormat(path)
	}

	firstLine := string(header)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimRight(firstLine, "\r")
	if firstLine == "# Netscape HTTP Cookie File" || firstLine == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}

	return FormatUnknown, fmt.Errorf("unsupported cookie store format at %s", path)
}

// detectSQLiteFormat opens the SQLite file directly (the driver needs a
// real path) and checks which cookie table exists.
func detectSQLiteFormat(path string) (Format, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot open SQLite database: %w", err)
	}
	defer db.Close()

	var tableName string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='moz_cookies'`).Scan(&tableName)
	if err == nil {
		return FormatFirefox, nil
	}
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='cookies'`).Scan(&tableName)
	if err == nil {
		return FormatChrome, nil
	}
	return FormatUnknown, fmt.Errorf("unsupported cookie database schema at %s", path)
}
