// Package jshost runs a cookies host inside an embedded JavaScript runtime.
//
// A host script defines the extension cookies API (by default
// browser.cookies) and the Runtime exposes it to Go through
// cookieapi.Host. All VM access happens on a single event loop goroutine,
// so a Runtime can serve concurrent calls; promises returned by the script
// are awaited on the loop and may resolve in any order.
package jshost

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
	"github.com/warpdl/cookiebridge/common"
	"github.com/warpdl/cookiebridge/pkg/logger"
)

// Options configures a Runtime.
type Options struct {
	// Namespace is the dotted path of the cookies object on the global
	// object. Defaults to common.DefaultNamespace.
	Namespace string
	// Fs is the filesystem scripts and require()d modules are read from.
	// Defaults to the OS filesystem.
	Fs afero.Fs
	// WorkDir confines script loading. Relative paths resolve against it
	// and nothing outside it can be read. Defaults to the current directory.
	WorkDir string
}

type Runtime struct {
	loop *eventloop.EventLoop
	fs   afero.Fs
	l    logger.Logger
	// namespace as given, and split into property names
	namespace string
	path      []string

	// captured once on the loop; only touched from the loop goroutine
	jsonParse     goja.Callable
	jsonStringify goja.Callable
	promise       *goja.Object
	resolve       goja.Callable

	// set by installGlobals; Interrupt is safe from any goroutine
	vm *goja.Runtime

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRuntime starts an event loop with print, console and the loop's timer
// functions installed.
func NewRuntime(l logger.Logger, opts Options) (*Runtime, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	l = logger.WithPrefix(l, "jshost")
	if opts.Namespace == "" {
		opts.Namespace = common.DefaultNamespace
	}
	path := strings.Split(opts.Namespace, ".")
	for _, p := range path {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, opts.Namespace)
		}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.WorkDir = wd
	}
	wd, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		fs:        afero.NewBasePathFs(opts.Fs, wd),
		l:         l,
		namespace: opts.Namespace,
		path:      path,
		done:      make(chan struct{}),
	}
	registry := requirePkg.NewRegistry(requirePkg.WithLoader(r.sourceLoader))
	r.loop = eventloop.NewEventLoop(
		eventloop.EnableConsole(false),
		eventloop.WithRegistry(registry),
	)
	r.loop.Start()
	if err := r.do(r.installGlobals); err != nil {
		r.Close()
		return nil, err
	}
	r.l.Debug("runtime started (namespace %s, workdir %s)", r.namespace, wd)
	return r, nil
}

// LoadFile runs the script at path, relative to the work directory.
func (r *Runtime) LoadFile(path string) error {
	b, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return r.LoadString(path, string(b))
}

// LoadString runs src as a script named name, e.g. to define the
// cookies namespace.
func (r *Runtime) LoadString(name, src string) error {
	err := r.do(func(vm *goja.Runtime) error {
		_, err := vm.RunScript(name, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	r.l.Info("loaded host script %s", name)
	return nil
}

// Close interrupts any running script and stops the event loop. Pending
// and later calls fail with ErrRuntimeClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()
	if r.vm != nil {
		r.vm.Interrupt(ErrRuntimeClosed)
	}
	r.loop.Stop()
	return nil
}

// enqueue schedules fn on the loop unless the runtime is closed.
func (r *Runtime) enqueue(fn func(*goja.Runtime)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.loop.RunOnLoop(fn)
	return true
}

// do runs fn on the loop and waits for it to return.
func (r *Runtime) do(fn func(*goja.Runtime) error) error {
	ch := make(chan error, 1)
	ok := r.enqueue(func(vm *goja.Runtime) {
		defer func() {
			if p := recover(); p != nil {
				ch <- fmt.Errorf("%w: %v", ErrHostException, p)
			}
		}()
		ch <- fn(vm)
	})
	if !ok {
		return ErrRuntimeClosed
	}
	select {
	case err := <-ch:
		return err
	case <-r.done:
		return ErrRuntimeClosed
	}
}

func (r *Runtime) installGlobals(vm *goja.Runtime) error {
	r.vm = vm
	console := vm.NewObject()
	for name, emit := range map[string]func(string, ...interface{}){
		"log":   r.l.Info,
		"info":  r.l.Info,
		"debug": r.l.Debug,
		"warn":  r.l.Warning,
		"error": r.l.Error,
	} {
		if err := console.Set(name, logFunc(emit)); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}
	if err := vm.Set("print", logFunc(r.l.Info)); err != nil {
		return err
	}

	jsonObj := vm.Get("JSON").ToObject(vm)
	var ok bool
	if r.jsonParse, ok = goja.AssertFunction(jsonObj.Get("parse")); !ok {
		return errors.New("JSON.parse unavailable")
	}
	if r.jsonStringify, ok = goja.AssertFunction(jsonObj.Get("stringify")); !ok {
		return errors.New("JSON.stringify unavailable")
	}
	r.promise = vm.Get("Promise").ToObject(vm)
	if r.resolve, ok = goja.AssertFunction(r.promise.Get("resolve")); !ok {
		return errors.New("Promise.resolve unavailable")
	}
	return nil
}

// logFunc adapts a logger method to a variadic JS function.
func logFunc(emit func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, v := range call.Arguments {
			parts[i] = v.String()
		}
		emit("%s", strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// sourceLoader serves require() from the confined filesystem.
func (r *Runtime) sourceLoader(path string) ([]byte, error) {
	name := filepath.FromSlash(path)
	if info, err := r.fs.Stat(name); err == nil && info.IsDir() {
		return nil, requirePkg.ModuleFileDoesNotExistError
	}
	b, err := afero.ReadFile(r.fs, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, requirePkg.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	return b, nil
}
