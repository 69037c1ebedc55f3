//go:build js && wasm

// Package wasmhost exposes the cookies API of the page or extension the
// program runs in, when compiled with GOOS=js GOARCH=wasm.
package wasmhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/warpdl/cookiebridge/pkg/cookieapi"
)

var (
	ErrNoCookiesAPI = errors.New("no cookies API in this environment")
	ErrNotFunction  = errors.New("cookies member is not a function")
	ErrRejected     = errors.New("cookies promise rejected")
)

// Host calls methods on a JS cookies object.
type Host struct {
	cookies js.Value
}

var _ cookieapi.Host = (*Host)(nil)

// New resolves globalThis.browser.cookies, falling back to
// globalThis.chrome.cookies.
func New() (*Host, error) {
	global := js.Global()
	for _, ns := range []string{"browser", "chrome"} {
		obj := global.Get(ns)
		if !present(obj) {
			continue
		}
		if cookies := obj.Get("cookies"); present(cookies) {
			return &Host{cookies: cookies}, nil
		}
	}
	return nil, ErrNoCookiesAPI
}

// FromValue wraps an explicit cookies object.
func FromValue(v js.Value) *Host {
	return &Host{cookies: v}
}

func present(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

type settled struct {
	raw json.RawMessage
	err error
}

// Call invokes cookies[method](details) and waits for the returned value or
// promise to settle. The JS callbacks run on the event loop, so ctx
// cancellation only abandons the wait.
func (h *Host) Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
	ch := make(chan settled, 1)
	var onFulfilled, onRejected js.Func
	release := func() {
		onFulfilled.Release()
		onRejected.Release()
	}
	onFulfilled = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		ch <- stringify(args)
		return nil
	})
	onRejected = js.FuncOf(func(this js.Value, args []js.Value) any {
		defer release()
		ch <- settled{err: fmt.Errorf("%w: %s", ErrRejected, reason(args))}
		return nil
	})

	if err := h.start(method, details, onFulfilled, onRejected); err != nil {
		release()
		return nil, err
	}
	select {
	case res := <-ch:
		return res.raw, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start issues the call and chains the callbacks, turning a thrown js.Error
// into an error.
func (h *Host) start(method string, details json.RawMessage, onFulfilled, onRejected js.Func) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if jsErr, ok := p.(js.Error); ok {
				err = fmt.Errorf("cookies.%s: %w", method, jsErr)
				return
			}
			panic(p)
		}
	}()
	fn := h.cookies.Get(method)
	if fn.Type() != js.TypeFunction {
		return fmt.Errorf("%w: %s", ErrNotFunction, method)
	}
	arg := js.Global().Get("JSON").Call("parse", string(details))
	ret := h.cookies.Call(method, arg)
	js.Global().Get("Promise").Call("resolve", ret).Call("then", onFulfilled, onRejected)
	return nil
}

func stringify(args []js.Value) (res settled) {
	defer func() {
		if p := recover(); p != nil {
			res = settled{err: fmt.Errorf("cookies result is not JSON serializable: %v", p)}
		}
	}()
	if len(args) == 0 || !present(args[0]) {
		return settled{}
	}
	s := js.Global().Get("JSON").Call("stringify", args[0])
	if s.IsUndefined() {
		return settled{}
	}
	return settled{raw: json.RawMessage(s.String())}
}

func reason(args []js.Value) string {
	if len(args) == 0 || !present(args[0]) {
		return "no reason given"
	}
	if args[0].Type() == js.TypeObject {
		if msg := args[0].Get("message"); msg.Type() == js.TypeString {
			return msg.String()
		}
	}
	return args[0].String()
}
