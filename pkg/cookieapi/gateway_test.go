package cookieapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/warpdl/cookiebridge/pkg/logger"
)

// jarHost is a minimal stand-in for the browser: it keeps cookies keyed by
// url and name, applies the defaults a browser would, and declines writes
// to non-http URLs.
type jarHost struct {
	mu  sync.Mutex
	jar map[string]Cookie
}

func newJarHost() *jarHost {
	return &jarHost{jar: make(map[string]Cookie)}
}

func (h *jarHost) put(rawURL string, c Cookie) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jar[rawURL+"|"+c.Name] = c
}

func (h *jarHost) Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch method {
	case MethodGet:
		var q CookieQuery
		if err := json.Unmarshal(details, &q); err != nil {
			return nil, err
		}
		c, ok := h.jar[q.URL+"|"+q.Name]
		if !ok {
			return json.RawMessage("null"), nil
		}
		return json.Marshal(c)
	case MethodSet:
		var w CookieWrite
		if err := json.Unmarshal(details, &w); err != nil {
			return nil, err
		}
		u, err := url.Parse(w.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, nil
		}
		c := Cookie{
			Domain:   u.Hostname(),
			HostOnly: true,
			Path:     "/",
			SameSite: Unspecified,
			Session:  true,
			StoreID:  "0",
		}
		if w.Domain != nil {
			c.Domain, c.HostOnly = *w.Domain, false
		}
		if w.ExpirationDate != nil {
			c.ExpirationDate, c.Session = w.ExpirationDate, false
		}
		if w.HTTPOnly != nil {
			c.HTTPOnly = *w.HTTPOnly
		}
		if w.Name != nil {
			c.Name = *w.Name
		}
		if w.Path != nil {
			c.Path = *w.Path
		}
		if w.SameSite != nil {
			c.SameSite = *w.SameSite
		}
		if w.Secure != nil {
			c.Secure = *w.Secure
		}
		if w.Value != nil {
			c.Value = *w.Value
		}
		c.PartitionKey = w.PartitionKey
		h.jar[w.URL+"|"+c.Name] = c
		return json.Marshal(c)
	}
	return nil, fmt.Errorf("unknown method %q", method)
}

func TestGatewayGetExisting(t *testing.T) {
	host := newJarHost()
	host.put("https://example.com/", Cookie{
		Domain:   "example.com", HostOnly: true, Name: "sid", Path: "/",
		SameSite: Strict, Session: true, StoreID: "0", Value: "s3cr3t",
	})
	gw := NewGateway(host, nil)

	c, err := gw.Get(context.Background(), CookieQuery{Name: "sid", URL: "https://example.com/"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c == nil {
		t.Fatal("expected a cookie")
	}
	if c.Name != "sid" || c.Domain != "example.com" || c.Path != "/" || c.SameSite != Strict || !c.Session || c.ExpirationDate != nil {
		t.Fatalf("unexpected cookie: %+v", c)
	}
}

func TestGatewaySetThenGet(t *testing.T) {
	gw := NewGateway(newJarHost(), nil)
	ctx := context.Background()

	set, err := gw.Set(ctx, CookieWrite{
		URL:    "https://example.com/",
		Name:   String("a"),
		Value:  String("1"),
		Secure: Bool(true),
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if set == nil || set.Name != "a" || set.Value != "1" || !set.Secure || !set.HostOnly {
		t.Fatalf("unexpected stored cookie: %+v", set)
	}

	got, err := gw.Get(ctx, CookieQuery{Name: "a", URL: "https://example.com/"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, set) {
		t.Fatalf("Get after Set:\n got %+v\nwant %+v", got, set)
	}
}

func TestGatewayAbsence(t *testing.T) {
	gw := NewGateway(newJarHost(), nil)
	ctx := context.Background()

	c, err := gw.Get(ctx, CookieQuery{Name: "missing", URL: "https://example.com/"})
	if err != nil || c != nil {
		t.Fatalf("Get missing = %v, %v; want nil, nil", c, err)
	}
	c, err = gw.Set(ctx, CookieWrite{URL: "ftp://example.com/", Name: String("a")})
	if err != nil || c != nil {
		t.Fatalf("declined Set = %v, %v; want nil, nil", c, err)
	}
}

func TestGatewayDecodeFailure(t *testing.T) {
	mock := logger.NewMockLogger()
	host := HostFunc(func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"domain":"example.com","hostOnly":true,"httpOnly":false,"name":"sid",
			"path":"/","secure":true,"session":true,"storeId":"0","value":"topsecret"}`), nil
	})
	gw := NewGateway(host, mock)

	for _, op := range []string{MethodGet, MethodSet} {
		var err error
		var c *Cookie
		if op == MethodGet {
			c, err = gw.Get(context.Background(), CookieQuery{Name: "sid", URL: "https://example.com/"})
		} else {
			c, err = gw.Set(context.Background(), CookieWrite{URL: "https://example.com/"})
		}
		if c != nil {
			t.Fatalf("%s: expected no cookie, got %+v", op, c)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected *DecodeError, got %v", op, err)
		}
		if de.Op != op || de.Field != "sameSite" || !errors.Is(err, ErrMissingField) {
			t.Fatalf("%s: unexpected decode error %+v", op, de)
		}
		if !strings.HasPrefix(err.Error(), "cookies."+op+": ") {
			t.Errorf("error message %q must name the call", err.Error())
		}
	}

	warnings := mock.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	for _, w := range warnings {
		if strings.Contains(w, "topsecret") {
			t.Fatalf("cookie value leaked into log: %s", w)
		}
	}
}

func TestGatewayHostError(t *testing.T) {
	boom := errors.New("permission denied")
	gw := NewGateway(HostFunc(func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
		return nil, boom
	}), nil)

	_, err := gw.Get(context.Background(), CookieQuery{Name: "sid", URL: "https://example.com/"})
	var he *HostError
	if !errors.As(err, &he) || he.Op != MethodGet {
		t.Fatalf("expected *HostError for get, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("host cause lost: %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Fatal("host failure must not look like a decode failure")
	}
}

func TestGatewayContextPassedToHost(t *testing.T) {
	gw := NewGateway(HostFunc(func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gw.Set(ctx, CookieWrite{URL: "https://example.com/"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGatewayNoHost(t *testing.T) {
	gw := NewGateway(nil, nil)
	if _, err := gw.Get(context.Background(), CookieQuery{Name: "a", URL: "https://example.com/"}); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}

func TestGatewayEncodeFailure(t *testing.T) {
	called := false
	gw := NewGateway(HostFunc(func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
		called = true
		return nil, nil
	}), nil)
	_, err := gw.Set(context.Background(), CookieWrite{URL: "https://example.com/", SameSite: SameSite("none")})
	if !errors.Is(err, ErrInvalidSameSite) {
		t.Fatalf("expected ErrInvalidSameSite, got %v", err)
	}
	if called {
		t.Fatal("host must not be called with an unencodable request")
	}
}

// TestGatewayConcurrentOutOfOrder resolves two in-flight gets in the reverse
// order of issue and checks each caller receives its own cookie.
func TestGatewayConcurrentOutOfOrder(t *testing.T) {
	release := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	started := make(chan string, 2)
	host := HostFunc(func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
		var q CookieQuery
		if err := json.Unmarshal(details, &q); err != nil {
			return nil, err
		}
		started <- q.Name
		<-release[q.Name]
		c := baseCookie()
		c.Name = q.Name
		c.Value = "value-of-" + q.Name
		return json.Marshal(c)
	})
	gw := NewGateway(host, nil)

	type result struct {
		c   *Cookie
		err error
	}
	results := map[string]chan result{
		"first":  make(chan result, 1),
		"second": make(chan result, 1),
	}
	for name, ch := range results {
		go func(name string, ch chan result) {
			c, err := gw.Get(context.Background(), CookieQuery{Name: name, URL: "https://example.com/"})
			ch <- result{c, err}
		}(name, ch)
	}
	<-started
	<-started

	close(release["second"])
	r2 := <-results["second"]
	close(release["first"])
	r1 := <-results["first"]

	for name, r := range map[string]result{"first": r1, "second": r2} {
		if r.err != nil {
			t.Fatalf("%s: %v", name, r.err)
		}
		if r.c.Name != name || r.c.Value != "value-of-"+name {
			t.Fatalf("%s: got cookie %+v", name, r.c)
		}
	}
}
