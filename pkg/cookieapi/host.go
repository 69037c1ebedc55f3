package cookieapi

import (
	"context"
	"encoding/json"
)

// Host method names, as exposed on the extension's cookies object.
const (
	MethodGet = "get"
	MethodSet = "set"
)

// Host invokes a member of the cookies capability with a single JSON
// object argument and returns its resolved value as JSON. An empty or null
// result is the host's empty sentinel.
//
// Implementations must be safe for concurrent use and must return once ctx
// is done, even if the underlying call is still pending.
type Host interface {
	Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error)
}

// HostFunc adapts an ordinary function to the Host interface.
type HostFunc func(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error)

func (f HostFunc) Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
	return f(ctx, method, details)
}
