package cookies

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openSnapshot opens a copied cookie database read-only.
func openSnapshot(dbPath string) (*sql.DB, error) {
	dsn, err := fileDSN(dbPath, "immutable=1")
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}

// fileDSN builds a file: URI for dbPath with the given query. The path is
// percent-encoded, so names containing '?', '#' or '%' survive.
func fileDSN(dbPath, query string) (string, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// C:/... on Windows
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: query}
	return u.String(), nil
}

// hasColumn reports whether table has the named column. Older browser
// versions lack some columns, e.g. sameSite.
func hasColumn(db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
