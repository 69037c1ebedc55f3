package cookies

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
	"golang.org/x/sync/errgroup"
)

// DefaultPushJobs bounds concurrent Set calls when PushOptions.Jobs is unset.
const DefaultPushJobs = 4

// ToWrite converts an imported cookie into the details of a cookies.set
// call. The URL is built from the cookie's host and path; Domain is only
// sent for domain cookies and ExpirationDate only for persistent ones, so
// the browser recreates host-only and session cookies as such.
func ToWrite(c Cookie) cookieapi.CookieWrite {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	w := cookieapi.CookieWrite{
		URL:      scheme + "://" + strings.TrimPrefix(c.Domain, ".") + path,
		Name:     cookieapi.String(c.Name),
		Value:    cookieapi.String(c.Value),
		Path:     cookieapi.String(path),
		Secure:   cookieapi.Bool(c.Secure),
		HTTPOnly: cookieapi.Bool(c.HttpOnly),
	}
	if strings.HasPrefix(c.Domain, ".") {
		w.Domain = cookieapi.String(c.Domain)
	}
	if !c.Expiry.IsZero() && c.Expiry.Unix() > 0 {
		w.ExpirationDate = cookieapi.Uint64(uint64(c.Expiry.Unix()))
	}
	if c.SameSite.Valid() && c.SameSite != cookieapi.Unspecified {
		w.SameSite = cookieapi.SameSite(c.SameSite)
	}
	return w
}

// Setter is the part of the cookie gateway Push needs.
type Setter interface {
	Set(ctx context.Context, w cookieapi.CookieWrite) (*cookieapi.Cookie, error)
}

type PushOptions struct {
	// Jobs bounds concurrent Set calls.
	Jobs int
	// OnResult is called after each cookie is stored or declined. It may be
	// called from several goroutines at once.
	OnResult func(c Cookie, stored bool)
}

type PushResult struct {
	Stored   int
	Declined int
}

// Push sets every cookie through s. A cookie the browser declines (absent
// result) is counted, not an error. The first failing call cancels the
// remaining ones and is returned with the counts reached so far.
func Push(ctx context.Context, s Setter, cookies []Cookie, opts PushOptions) (PushResult, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultPushJobs
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	var stored, declined atomic.Int64
	for _, c := range cookies {
		c := c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			got, err := s.Set(ctx, ToWrite(c))
			if err != nil {
				return fmt.Errorf("set cookie %s for %s: %w", c.Name, c.Domain, err)
			}
			if got != nil {
				stored.Add(1)
			} else {
				declined.Add(1)
			}
			if opts.OnResult != nil {
				opts.OnResult(c, got != nil)
			}
			return nil
		})
	}
	err := g.Wait()
	return PushResult{Stored: int(stored.Load()), Declined: int(declined.Load())}, err
}
