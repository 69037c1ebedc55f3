package cookieapi

import (
	"net/http"
	"time"
)

// CookiePartitionKey identifies the partition of a partitioned cookie.
// Nil fields are left to the host default.
type CookiePartitionKey struct {
	HasCrossSiteAncestor *bool `json:"hasCrossSiteAncestor,omitempty"`
	// TopLevelSite is carried as a boolean, matching the binding this
	// package mirrors.
	TopLevelSite *bool `json:"topLevelSite,omitempty"`
}

// CookieQuery is the argument of cookies.get.
type CookieQuery struct {
	Name         string              `json:"name"`
	URL          string              `json:"url"`
	PartitionKey *CookiePartitionKey `json:"partitionKey,omitempty"`
	StoreID      *string             `json:"storeId,omitempty"`
}

// CookieWrite is the argument of cookies.set. URL is mandatory; every other
// field is an optional override of the host's default.
type CookieWrite struct {
	URL string `json:"url"`
	// Domain is omitted for host-only cookies.
	Domain *string `json:"domain,omitempty"`
	// ExpirationDate is in seconds since the UNIX epoch. Omitted for
	// session cookies.
	ExpirationDate *uint64             `json:"expirationDate,omitempty"`
	HTTPOnly       *bool               `json:"httpOnly,omitempty"`
	Name           *string             `json:"name,omitempty"`
	PartitionKey   *CookiePartitionKey `json:"partitionKey,omitempty"`
	Path           *string             `json:"path,omitempty"`
	SameSite       *SameSiteStatus     `json:"sameSite,omitempty"`
	Secure         *bool               `json:"secure,omitempty"`
	StoreID        *string             `json:"storeId,omitempty"`
	Value          *string             `json:"value,omitempty"`
}

// Cookie is a cookie as stored by the host.
type Cookie struct {
	Domain string `json:"domain"`
	// ExpirationDate is nil for session cookies.
	ExpirationDate *uint64             `json:"expirationDate,omitempty"`
	HostOnly       bool                `json:"hostOnly"`
	HTTPOnly       bool                `json:"httpOnly"`
	Name           string              `json:"name"`
	PartitionKey   *CookiePartitionKey `json:"partitionKey,omitempty"`
	Path           string              `json:"path"`
	SameSite       SameSiteStatus      `json:"sameSite"`
	Secure         bool                `json:"secure"`
	Session        bool                `json:"session"`
	StoreID        string              `json:"storeId"`
	// Value is sensitive and must never be logged.
	Value string `json:"value"`
}

// Expires returns the expiration time of a persistent cookie.
// ok is false for session cookies.
func (c *Cookie) Expires() (t time.Time, ok bool) {
	if c.ExpirationDate == nil {
		return time.Time{}, false
	}
	return time.Unix(int64(*c.ExpirationDate), 0).UTC(), true
}

// HTTPCookie converts c into a net/http cookie, e.g. to replay it on a
// request made outside the browser.
func (c *Cookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if !c.HostOnly {
		hc.Domain = c.Domain
	}
	if t, ok := c.Expires(); ok {
		hc.Expires = t
	}
	switch c.SameSite {
	case NoRestriction:
		hc.SameSite = http.SameSiteNoneMode
	case Lax:
		hc.SameSite = http.SameSiteLaxMode
	case Strict:
		hc.SameSite = http.SameSiteStrictMode
	default:
		hc.SameSite = http.SameSiteDefaultMode
	}
	return hc
}

// String returns a pointer to s, for optional request fields.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for optional request fields.
func Bool(b bool) *bool { return &b }

// Uint64 returns a pointer to v, for optional request fields.
func Uint64(v uint64) *uint64 { return &v }

// SameSite returns a pointer to s, for optional request fields.
func SameSite(s SameSiteStatus) *SameSiteStatus { return &s }
