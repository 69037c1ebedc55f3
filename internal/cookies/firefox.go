package cookies

import (
	"fmt"
	"time"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

// firefoxSameSite maps the moz_cookies sameSite column.
func firefoxSameSite(v int) cookieapi.SameSiteStatus {
	switch v {
	case 0:
		return cookieapi.NoRestriction
	case 1:
		return cookieapi.Lax
	case 2:
		return cookieapi.Strict
	default:
		return cookieapi.Unspecified
	}
}

// ParseFirefox reads cookies from a Firefox cookies.sqlite file for the given domain.
// The dbPath should be a path to a copied (not in-use) SQLite database.
// Expired cookies are skipped.
func ParseFirefox(dbPath string, domain string) ([]Cookie, error) {
	db, err := openSnapshot(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open Firefox cookie database: %w", err)
	}
	defer db.Close()

	sameSiteCol := "-1"
	if ok, err := hasColumn(db, "moz_cookies", "sameSite"); err != nil {
		return nil, fmt.Errorf("error: cannot inspect Firefox cookie database: %w", err)
	} else if ok {
		sameSiteCol = "sameSite"
	}

	rows, err := db.Query(`
        SELECT name, value, host, path, expiry, isSecure, isHttpOnly, `+sameSiteCol+`
        FROM moz_cookies
        WHERE (host = ? OR host = ? OR host LIKE ?)
          AND expiry > ?
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("error: failed to query Firefox cookies: %w", err)
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var (
			c                    Cookie
			expiry               int64
			isSecure, isHttpOnly int
			sameSite             int
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &expiry, &isSecure, &isHttpOnly, &sameSite); err != nil {
			return nil, fmt.Errorf("error: failed to scan Firefox cookie row: %w", err)
		}
		c.Expiry = time.Unix(expiry, 0)
		c.Secure = isSecure != 0
		c.HttpOnly = isHttpOnly != 0
		c.SameSite = firefoxSameSite(sameSite)
		cookies = append(cookies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate Firefox cookie rows: %w", err)
	}
	return cookies, nil
}
