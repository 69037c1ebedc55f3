package cookies

import (
	"fmt"
	"time"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

// chromeEpochOffsetSeconds is the number of seconds between the Windows NT epoch
// (1601-01-01 00:00:00 UTC) and the Unix epoch (1970-01-01 00:00:00 UTC).
const chromeEpochOffsetSeconds int64 = 11_644_473_600

// chromeToUnix converts a Chrome timestamp (microseconds since 1601-01-01)
// to a Unix timestamp (seconds since 1970-01-01).
func chromeToUnix(chromeUSec int64) int64 {
	return (chromeUSec / 1_000_000) - chromeEpochOffsetSeconds
}

// chromeSameSite maps the Chrome samesite column.
func chromeSameSite(v int) cookieapi.SameSiteStatus {
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

// ParseChrome reads cookies from a Chrome Cookies SQLite file for the given domain.
// Encrypted cookies (empty value column) are skipped. Session cookies have
// expires_utc 0 and are kept with a zero Expiry.
// The dbPath should be a path to a copied (not in-use) SQLite database.
func ParseChrome(dbPath string, domain string) ([]Cookie, error) {
	db, err := openSnapshot(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open Chrome cookie database: %w", err)
	}
	defer db.Close()

	sameSiteCol := "-1"
	if ok, err := hasColumn(db, "cookies", "samesite"); err != nil {
		return nil, fmt.Errorf("error: cannot inspect Chrome cookie database: %w", err)
	} else if ok {
		sameSiteCol = "samesite"
	}

	nowChrome := (time.Now().Unix() + chromeEpochOffsetSeconds) * 1_000_000
	rows, err := db.Query(`
        SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly, `+sameSiteCol+`
        FROM cookies
        WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?)
          AND value != ''
          AND (expires_utc = 0 OR expires_utc > ?)
        ORDER BY path DESC, name ASC
    `, domain, "."+domain, "%."+domain, nowChrome)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query Chrome cookies: %w", err)
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var (
			c                    Cookie
			expiresUTC           int64
			isSecure, isHttpOnly int
			sameSite             int
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &expiresUTC, &isSecure, &isHttpOnly, &sameSite); err != nil {
			return nil, fmt.Errorf("error: failed to scan Chrome cookie row: %w", err)
		}
		if expiresUTC != 0 {
			c.Expiry = time.Unix(chromeToUnix(expiresUTC), 0)
		}
		c.Secure = isSecure != 0
		c.HttpOnly = isHttpOnly != 0
		c.SameSite = chromeSameSite(sameSite)
		cookies = append(cookies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate Chrome cookie rows: %w", err)
	}
	return cookies, nil
}
