package cookies

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
	"github.com/warpdl/cookiebridge/pkg/logger"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseNetscape reads Netscape-format cookie lines from r for the given domain.
// Lines starting with # are skipped, except #HttpOnly_ which sets the HttpOnly flag.
// Malformed lines are skipped with a warning; the warning never includes the
// line itself since it carries the value.
func ParseNetscape(r io.Reader, domain string, l logger.Logger) ([]Cookie, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	now := time.Now()
	dotDomain := "." + domain
	var cookies []Cookie

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = line[len(httpOnlyPrefix):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			l.Warning("skipping malformed Netscape cookie line %d: %d fields", lineNo, len(fields))
			continue
		}
		cookieDomain := fields[0]
		// fields[1] is the subdomain flag, implied by the leading dot
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			l.Warning("skipping cookie %s on line %d: invalid expiry", fields[5], lineNo)
			continue
		}
		if !matchesDomain(cookieDomain, domain, dotDomain) {
			continue
		}
		// expiry 0 marks a session cookie
		var expires time.Time
		if expiry > 0 {
			expires = time.Unix(expiry, 0)
			if expires.Before(now) {
				continue
			}
		}

		cookies = append(cookies, Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Domain:   cookieDomain,
			Path:     fields[2],
			Expiry:   expires,
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
			SameSite: cookieapi.Unspecified,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to read Netscape cookie file: %w", err)
	}
	return cookies, nil
}

// matchesDomain checks if a cookie domain matches the target domain.
// Matches: exact match, dot-prefix, or subdomain wildcard.
func matchesDomain(cookieDomain, domain, dotDomain string) bool {
	return cookieDomain == domain || cookieDomain == dotDomain || strings.HasSuffix(cookieDomain, dotDomain)
}

// WriteNetscape renders cookies decoded from the browser as a Netscape
// cookie file.
func WriteNetscape(w io.Writer, cookies []cookieapi.Cookie) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Netscape HTTP Cookie File")
	for _, c := range cookies {
		domain := c.Domain
		if !c.HostOnly && !strings.HasPrefix(domain, ".") {
			domain = "." + domain
		}
		if c.HTTPOnly {
			domain = httpOnlyPrefix + domain
		}
		var expiry uint64
		if c.ExpirationDate != nil {
			expiry = *c.ExpirationDate
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, netscapeBool(!c.HostOnly), c.Path, netscapeBool(c.Secure), expiry, c.Name, c.Value)
	}
	return bw.Flush()
}

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// BuildCookieHeader builds an HTTP Cookie header value from decoded cookies.
// Format: "name1=val1; name2=val2"
func BuildCookieHeader(cookies []cookieapi.Cookie) string {
	parts := make([]string, len(cookies))
	for i, c := range cookies {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; ")
}
