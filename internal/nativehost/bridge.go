package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/warpdl/cookiebridge/common"
	"github.com/warpdl/cookiebridge/pkg/cookieapi"
	"github.com/warpdl/cookiebridge/pkg/logger"
)

var (
	ErrBridgeClosed    = errors.New("native messaging bridge closed")
	ErrMessageTooLarge = errors.New("native message too large")
	ErrUnknownMethod   = errors.New("unknown cookies method")
)

// RemoteError is returned when the extension answers with ok=false.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: extension error: %s", e.Method, e.Message)
}

// Bridge is a cookieapi.Host that forwards calls to the extension on the
// other end of a native messaging channel.
type Bridge struct {
	r io.ReadCloser
	w io.Writer
	l logger.Logger

	// frames for writeLoop, the only writer on w
	frames chan outFrame

	mu      sync.Mutex
	nextID  int
	pending map[int]chan *Response
	err     error

	closeOnce sync.Once
	done      chan struct{}
}

// NewBridge starts reading responses from r. Requests are written to w.
func NewBridge(r io.ReadCloser, w io.Writer, l logger.Logger) *Bridge {
	if l == nil {
		l = logger.NewNopLogger()
	}
	b := &Bridge{
		r:       r,
		w:       w,
		l:       logger.WithPrefix(l, "nativehost"),
		pending: make(map[int]chan *Response),
		frames:  make(chan outFrame),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	go b.writeLoop()
	return b
}

type outFrame struct {
	msg  []byte
	errc chan error
}

var _ cookieapi.Host = (*Bridge)(nil)

func nativeMethod(method string) (string, error) {
	switch method {
	case cookieapi.MethodGet:
		return common.NativeMethodGet, nil
	case cookieapi.MethodSet:
		return common.NativeMethodSet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// Call sends details to the extension and waits for the response with the
// same id, ctx cancellation, or the channel failing. A write that does not
// complete keeps the writer busy but does not hold Call past ctx.
func (b *Bridge) Call(ctx context.Context, method string, details json.RawMessage) (json.RawMessage, error) {
	name, err := nativeMethod(method)
	if err != nil {
		return nil, err
	}
	ch := make(chan *Response, 1)
	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return nil, err
	}
	b.nextID++
	id := b.nextID
	b.pending[id] = ch
	b.mu.Unlock()
	defer b.forget(id)

	msg, err := MakeRequest(id, name, details)
	if err != nil {
		return nil, err
	}
	errc := make(chan error, 1)
	select {
	case b.frames <- outFrame{msg: msg, errc: errc}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, b.failure()
	}

	for {
		select {
		case err := <-errc:
			if err != nil {
				return nil, fmt.Errorf("write %s request: %w", name, err)
			}
			errc = nil
			b.l.Debug("sent %s request %d", name, id)
		case resp := <-ch:
			return result(name, resp)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.done:
			// a response may have been delivered just before the reader stopped
			select {
			case resp := <-ch:
				return result(name, resp)
			default:
			}
			return nil, b.failure()
		}
	}
}

func result(method string, resp *Response) (json.RawMessage, error) {
	if !resp.Ok {
		return nil, &RemoteError{Method: method, Message: resp.Error}
	}
	return resp.Result, nil
}

// Close closes the response stream and waits for the reader to stop.
// Pending calls fail with ErrBridgeClosed. The writer exits once its
// current frame, if any, is written.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.r.Close()
	})
	<-b.done
	return err
}

// Done is closed once the bridge stops reading responses.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

func (b *Bridge) forget(id int) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Bridge) failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bridge) readLoop() {
	defer close(b.done)
	for {
		msg, err := ReadMessage(b.r)
		if err != nil {
			b.mu.Lock()
			b.err = fmt.Errorf("%w: %w", ErrBridgeClosed, err)
			b.mu.Unlock()
			if errors.Is(err, io.EOF) {
				b.l.Debug("extension closed the channel")
			} else {
				b.l.Warning("read failed: %v", err)
			}
			return
		}
		resp, err := ParseResponse(msg)
		if err != nil {
			b.l.Warning("dropping malformed frame (%d bytes): %v", len(msg), err)
			continue
		}
		b.mu.Lock()
		ch, ok := b.pending[resp.ID]
		delete(b.pending, resp.ID)
		b.mu.Unlock()
		if !ok {
			b.l.Warning("dropping response for unknown id %d", resp.ID)
			continue
		}
		ch <- resp
	}
}

func (b *Bridge) writeLoop() {
	for {
		select {
		case f := <-b.frames:
			f.errc <- WriteMessage(b.w, f.msg)
		case <-b.done:
			return
		}
	}
}
