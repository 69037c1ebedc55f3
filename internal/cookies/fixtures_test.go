package cookies

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

type firefoxRow struct {
	Name       string
	Value      string
	Host       string
	Path       string
	Expiry     int64
	IsSecure   int
	IsHttpOnly int
	SameSite   int
}

// createFirefoxFixture writes a moz_cookies database into dir. Without
// sameSite the table has the column layout of older Firefox releases.
func createFirefoxFixture(t *testing.T, dir string, sameSite bool, rows []firefoxRow) string {
	t.Helper()
	dbPath := filepath.Join(dir, "cookies.sqlite")
	schema := `CREATE TABLE moz_cookies (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        value TEXT NOT NULL,
        host TEXT NOT NULL,
        path TEXT NOT NULL DEFAULT '/',
        expiry INTEGER NOT NULL DEFAULT 0,
        isSecure INTEGER NOT NULL DEFAULT 0,
        isHttpOnly INTEGER NOT NULL DEFAULT 0`
	insert := `INSERT INTO moz_cookies (name, value, host, path, expiry, isSecure, isHttpOnly) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if sameSite {
		schema += `, sameSite INTEGER NOT NULL DEFAULT 0`
		insert = `INSERT INTO moz_cookies (name, value, host, path, expiry, isSecure, isHttpOnly, sameSite) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	}
	writeFixture(t, dbPath, schema+")", insert, len(rows), func(i int) []any {
		r := rows[i]
		args := []any{r.Name, r.Value, r.Host, r.Path, r.Expiry, r.IsSecure, r.IsHttpOnly}
		if sameSite {
			args = append(args, r.SameSite)
		}
		return args
	})
	return dbPath
}

type chromeRow struct {
	Name           string
	Value          string
	EncryptedValue []byte
	HostKey        string
	Path           string
	// microseconds since 1601-01-01, 0 for session cookies
	ExpiresUTC int64
	IsSecure   int
	IsHttpOnly int
	SameSite   int
}

func unixToChrome(unixSec int64) int64 {
	return (unixSec + chromeEpochOffsetSeconds) * 1_000_000
}

func createChromeFixture(t *testing.T, dir string, sameSite bool, rows []chromeRow) string {
	t.Helper()
	dbPath := filepath.Join(dir, "Cookies")
	schema := `CREATE TABLE cookies (
        creation_utc INTEGER NOT NULL,
        host_key TEXT NOT NULL,
        name TEXT NOT NULL,
        value TEXT NOT NULL,
        encrypted_value BLOB NOT NULL DEFAULT x'',
        path TEXT NOT NULL DEFAULT '/',
        expires_utc INTEGER NOT NULL DEFAULT 0,
        is_secure INTEGER NOT NULL DEFAULT 0,
        is_httponly INTEGER NOT NULL DEFAULT 0`
	insert := `INSERT INTO cookies (creation_utc, host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if sameSite {
		schema += `, samesite INTEGER NOT NULL DEFAULT -1`
		insert = `INSERT INTO cookies (creation_utc, host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly, samesite) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}
	writeFixture(t, dbPath, schema+")", insert, len(rows), func(i int) []any {
		r := rows[i]
		enc := r.EncryptedValue
		if enc == nil {
			enc = []byte{}
		}
		args := []any{0, r.HostKey, r.Name, r.Value, enc, r.Path, r.ExpiresUTC, r.IsSecure, r.IsHttpOnly}
		if sameSite {
			args = append(args, r.SameSite)
		}
		return args
	})
	return dbPath
}

func writeFixture(t *testing.T, dbPath, schema, insert string, n int, row func(int) []any) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	stmt, err := db.Prepare(insert)
	if err != nil {
		t.Fatalf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(row(i)...); err != nil {
			t.Fatalf("failed to insert row: %v", err)
		}
	}
}

func cookieNames(cookies []Cookie) []string {
	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name
	}
	return names
}
