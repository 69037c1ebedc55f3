package jshost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

type callResult struct {
	raw json.RawMessage
	err error
}

// Call invokes <namespace>.<method>(details) in the host script and waits
// for its result. Plain return values and promises are both accepted;
// undefined and null resolve to an empty result.
func (r *Runtime) Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
	ch := make(chan callResult, 1)
	settle := func(res callResult) {
		select {
		case ch <- res:
		default:
		}
	}
	if !r.enqueue(func(vm *goja.Runtime) { r.invoke(vm, method, details, settle) }) {
		return nil, ErrRuntimeClosed
	}
	select {
	case res := <-ch:
		return res.raw, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrRuntimeClosed
	}
}

// invoke runs on the loop goroutine. settle is called once the returned
// value (or promise) has settled.
func (r *Runtime) invoke(vm *goja.Runtime, method string, details json.RawMessage, settle func(callResult)) {
	defer func() {
		if p := recover(); p != nil {
			settle(callResult{err: fmt.Errorf("%w: %v", ErrHostException, p)})
		}
	}()
	target, err := r.lookupNamespace(vm)
	if err != nil {
		settle(callResult{err: err})
		return
	}
	fn, ok := goja.AssertFunction(target.Get(method))
	if !ok {
		settle(callResult{err: fmt.Errorf("%w: %s.%s", ErrMethodNotDefined, r.namespace, method)})
		return
	}
	arg, err := r.jsonParse(goja.Undefined(), vm.ToValue(string(details)))
	if err != nil {
		settle(callResult{err: fmt.Errorf("parse %s details: %w", method, err)})
		return
	}
	ret, err := fn(target, arg)
	if err != nil {
		settle(callResult{err: fmt.Errorf("%w: %s.%s: %v", ErrHostException, r.namespace, method, err)})
		return
	}
	p, err := r.resolve(r.promise, ret)
	if err != nil {
		settle(callResult{err: fmt.Errorf("%w: %v", ErrHostException, err)})
		return
	}
	then, ok := goja.AssertFunction(p.ToObject(vm).Get("then"))
	if !ok {
		settle(callResult{err: fmt.Errorf("%w: result is not thenable", ErrHostException)})
		return
	}
	onFulfilled := func(call goja.FunctionCall) goja.Value {
		raw, err := r.stringify(call.Argument(0))
		settle(callResult{raw: raw, err: err})
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		settle(callResult{err: fmt.Errorf("%w: %s.%s: %s", ErrPromiseRejected, r.namespace, method, reason(call.Argument(0)))})
		return goja.Undefined()
	}
	if _, err := then(p, vm.ToValue(onFulfilled), vm.ToValue(onRejected)); err != nil {
		settle(callResult{err: fmt.Errorf("%w: %v", ErrHostException, err)})
	}
}

// lookupNamespace walks the dotted namespace from the global object.
func (r *Runtime) lookupNamespace(vm *goja.Runtime) (*goja.Object, error) {
	obj := vm.GlobalObject()
	for _, name := range r.path {
		v := obj.Get(name)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, r.namespace)
		}
		obj = v.ToObject(vm)
	}
	return obj, nil
}

func (r *Runtime) stringify(v goja.Value) (json.RawMessage, error) {
	s, err := r.jsonStringify(goja.Undefined(), v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializable, err)
	}
	if s == nil || goja.IsUndefined(s) {
		return nil, nil
	}
	return json.RawMessage(s.String()), nil
}

// reason renders a rejection value, preferring an Error's message.
func reason(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "no reason given"
	}
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	return v.String()
}
