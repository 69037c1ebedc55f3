package cookies

import (
	"time"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

// CookieFormat identifies the format of a browser cookie store.
type CookieFormat int

const (
	// FormatUnknown means the cookie store format could not be detected.
	FormatUnknown CookieFormat = iota
	// FormatFirefox is the Firefox moz_cookies SQLite schema.
	FormatFirefox
	// FormatChrome is the Chrome cookies SQLite schema. Only unencrypted
	// values are usable.
	FormatChrome
	// FormatNetscape is the tab-separated Netscape text format.
	FormatNetscape
)

func (f CookieFormat) String() string {
	switch f {
	case FormatFirefox:
		return "Firefox"
	case FormatChrome:
		return "Chrome"
	case FormatNetscape:
		return "Netscape"
	default:
		return "unknown"
	}
}

// Cookie is a single cookie read from a browser cookie store.
// Value is sensitive and must not be logged or put into error messages.
type Cookie struct {
	Name  string
	Value string
	// Domain may carry a leading dot for cookies that include subdomains.
	Domain string
	Path   string
	// Expiry is zero for session cookies.
	Expiry   time.Time
	Secure   bool
	HttpOnly bool
	SameSite cookieapi.SameSiteStatus
}

// Source describes where cookies were imported from.
type Source struct {
	Path    string
	Format  CookieFormat
	Browser string
}
