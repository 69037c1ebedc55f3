package cookies

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite"
)

// sqliteMagic is the first 16 bytes of any SQLite database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// statCookieFile checks that path names a non-empty regular file.
func statCookieFile(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return fmt.Errorf("error: cookie file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("error: %s is a directory, expected a cookie file path or 'auto'", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("error: cookie file at %s is empty or corrupted", path)
	}
	return nil
}

// DetectFormat determines the cookie store format of the file at the given path.
// SQLite stores are told apart by their cookie table, which requires a file
// on the OS filesystem.
func DetectFormat(fs afero.Fs, path string) (CookieFormat, error) {
	if err := statCookieFile(fs, path); err != nil {
		return FormatUnknown, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("error: cannot open cookie file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.Peek(len(sqliteMagic))
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("error: cannot read cookie file: %w", err)
	}
	if bytes.Equal(header, sqliteMagic) {
		return detectSQLiteFormat(fs, path)
	}

	firstLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("error: cannot read cookie file: %w", err)
	}
	firstLine = strings.TrimRight(firstLine, "\r\n")
	if firstLine == "# Netscape HTTP Cookie File" || firstLine == "# HTTP Cookie File" {
		return FormatNetscape, nil
	}
	return FormatUnknown, fmt.Errorf("error: unsupported cookie database schema at %s", path)
}

// detectSQLiteFormat checks which cookie table exists. Stores on a
// non-OS filesystem are copied out first.
func detectSQLiteFormat(fs afero.Fs, path string) (CookieFormat, error) {
	dbPath := path
	if _, ok := fs.(*afero.OsFs); !ok {
		tempDir, cleanup, err := SafeCopy(fs, path)
		if err != nil {
			return FormatUnknown, err
		}
		defer cleanup()
		dbPath = filepath.Join(tempDir, filepath.Base(path))
	}
	dsn, err := fileDSN(dbPath, "mode=ro")
	if err != nil {
		return FormatUnknown, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return FormatUnknown, fmt.Errorf("error: cannot open SQLite database: %w", err)
	}
	defer db.Close()

	for _, check := range []struct {
		table  string
		format CookieFormat
	}{
		{"moz_cookies", FormatFirefox},
		{"cookies", FormatChrome},
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, check.table).Scan(&name)
		if err == nil {
			return check.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("error: unsupported cookie database schema at %s", path)
}
