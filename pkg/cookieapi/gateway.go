package cookieapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warpdl/cookiebridge/pkg/logger"
)

// Gateway forwards typed cookie requests to a Host.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	host Host
	l    logger.Logger
}

// NewGateway returns a gateway that calls host. A nil logger discards output.
func NewGateway(host Host, l logger.Logger) *Gateway {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Gateway{host: host, l: l}
}

// Get looks up the cookie identified by q.
// It returns (nil, nil) when the host has no matching cookie.
func (g *Gateway) Get(ctx context.Context, q CookieQuery) (*Cookie, error) {
	details, err := EncodeQuery(q)
	if err != nil {
		return nil, fmt.Errorf("cookies.get: encode query: %w", err)
	}
	g.l.Debug("cookies.get name=%q url=%q", q.Name, q.URL)
	return g.call(ctx, MethodGet, details, q.Name, q.URL)
}

// Set writes a cookie and returns it as stored by the host, host defaults
// applied. It returns (nil, nil) when the host declines the write.
func (g *Gateway) Set(ctx context.Context, w CookieWrite) (*Cookie, error) {
	details, err := EncodeWrite(w)
	if err != nil {
		return nil, fmt.Errorf("cookies.set: encode write: %w", err)
	}
	var name string
	if w.Name != nil {
		name = *w.Name
	}
	g.l.Debug("cookies.set name=%q url=%q", name, w.URL)
	return g.call(ctx, MethodSet, details, name, w.URL)
}

func (g *Gateway) call(ctx context.Context, method string, details json.RawMessage, name, url string) (*Cookie, error) {
	if g.host == nil {
		return nil, ErrNoHost
	}
	raw, err := g.host.Call(ctx, method, details)
	if err != nil {
		g.l.Warning("cookies.%s name=%q url=%q: host failed: %v", method, name, url, err)
		return nil, &HostError{Op: method, Err: err}
	}
	c, err := decodeCookie(method, raw)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			g.l.Warning("cookies.%s name=%q url=%q: malformed response (field %q): %v", method, name, url, de.Field, de.Err)
		}
		return nil, err
	}
	if c == nil {
		g.l.Debug("cookies.%s name=%q url=%q: no cookie", method, name, url)
	}
	return c, nil
}
