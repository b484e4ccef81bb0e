package cookies

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sechat/sechat/pkg/chatlib"
	"github.com/sechat/sechat/pkg/logger"
)

// Source describes where cookies were imported from. Only the browser
// name is meant for display; the path may be sensitive.
type Source struct {
	Path    string
	Format  Format
	Browser string
}

// Import reads the cookie store at path and returns the live cookies
// scoped to domain, ready to seed a jar. SQLite stores are copied
// before reading so an open browser cannot corrupt the import.
func Import(fsys afero.Fs, path, domain string, log logger.Logger) ([]chatlib.Cookie, *Source, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	format, err := Detect(fsys, path)
	if err != nil {
		return nil, nil, err
	}

	source := &Source{Path: path, Format: format}
	var imported []chatlib.Cookie

	switch format {
	case FormatFirefox:
		source.Browser = "Firefox"
		imported, err = importSQLite(path, domain, parseFirefox)
	case FormatChrome:
		source.Browser = "Chrome"
		imported, err = importSQLite(path, domain, parseChrome)
	case FormatNetscape:
		source.Browser = "Netscape"
		imported, err = parseNetscape(fsys, path, domain, log)
	default:
		return nil, nil, fmt.Errorf("unsupported cookie store format at %s", path)
	}
	if err != nil {
		return nil, nil, err
	}
	return imported, source, nil
}

// Seed imports a cookie store and loads the result into the jar.
func Seed(jar *chatlib.Jar, fsys afero.Fs, path, domain string, log logger.Logger) (*Source, error) {
	imported, source, err := Import(fsys, path, domain, log)
	if err != nil {
		return nil, err
	}
	jar.Seed(imported)
	return source, nil
}

// importSQLite copies a SQLite store out of the browser's reach and
// parses the copy.
func importSQLite(sourcePath, domain string, parser func(string, string) ([]chatlib.Cookie, error)) ([]chatlib.Cookie, error) {
	tempDir, cleanup, err := safeCopy(sourcePath)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return parser(filepath.Join(tempDir, filepath.Base(sourcePath)), domain)
}
