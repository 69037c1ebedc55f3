package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/warpdl/cookiebridge/common"
	"github.com/warpdl/cookiebridge/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Relay is what the browser launches as the native host. It forwards
// requests from local clients, such as a Bridge dialed to its listener, to
// the extension on r/w and routes each response back to the client that
// sent the request. Request ids are rewritten on the way so clients number
// their calls independently.
type Relay struct {
	r io.Reader
	w io.Writer
	l logger.Logger

	// one frame at a time on w
	wmu sync.Mutex

	mu      sync.Mutex
	nextID  int
	routes  map[int]route
	clients map[*relayClient]struct{}
	closed  bool
}

type route struct {
	c  *relayClient
	id int
}

type relayClient struct {
	conn net.Conn
	mu   sync.Mutex
}

// send writes a response frame; a client that stops reading is dropped
// after common.DefaultTimeout.
func (c *relayClient) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(common.DefaultTimeout))
	return writeFrame(c.conn, msg, MaxIncomingMessageSize)
}

// NewRelay returns a relay for the extension reachable through r and w,
// normally the process's stdin and stdout.
func NewRelay(r io.Reader, w io.Writer, l logger.Logger) *Relay {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Relay{
		r:       r,
		w:       w,
		l:       logger.WithPrefix(l, "relay"),
		routes:  make(map[int]route),
		clients: make(map[*relayClient]struct{}),
	}
}

// Serve accepts clients on ln until the extension closes its end or ctx is
// done, then closes ln and every client. It returns nil when the extension
// disconnects. Serve does not close r; when ctx ends first, the reader
// stays blocked on r until it closes.
func (r *Relay) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	read := make(chan error, 1)
	go func() {
		read <- r.readLoop()
	}()

	g.Go(func() error {
		select {
		case err := <-read:
			return err
		case <-ctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		r.closeClients()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			c := r.add(conn)
			g.Go(func() error {
				r.serveClient(c)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, io.EOF) {
		r.l.Debug("extension closed the channel")
		return nil
	}
	return err
}

func (r *Relay) add(conn net.Conn) *relayClient {
	c := &relayClient{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		// accepted while shutting down
		conn.Close()
	}
	r.clients[c] = struct{}{}
	r.l.Debug("client connected")
	return c
}

// remove closes c and forgets its outstanding requests.
func (r *Relay) remove(c *relayClient) {
	r.mu.Lock()
	delete(r.clients, c)
	for id, rt := range r.routes {
		if rt.c == c {
			delete(r.routes, id)
		}
	}
	r.mu.Unlock()
	c.conn.Close()
}

func (r *Relay) closeClients() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for c := range r.clients {
		c.conn.Close()
	}
}

func (r *Relay) serveClient(c *relayClient) {
	defer r.remove(c)
	for {
		msg, err := ReadMessage(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				r.l.Warning("client read failed: %v", err)
			}
			return
		}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			r.l.Warning("dropping malformed client frame (%d bytes): %v", len(msg), err)
			continue
		}

		r.mu.Lock()
		r.nextID++
		id := r.nextID
		r.routes[id] = route{c: c, id: req.ID}
		r.mu.Unlock()

		req.ID = id
		out, err := json.Marshal(req)
		if err == nil {
			r.wmu.Lock()
			err = WriteMessage(r.w, out)
			r.wmu.Unlock()
		}
		if err != nil {
			r.l.Warning("forward %s request: %v", req.Method, err)
			return
		}
	}
}

func (r *Relay) readLoop() error {
	for {
		msg, err := ReadMessage(r.r)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBridgeClosed, err)
		}
		resp, err := ParseResponse(msg)
		if err != nil {
			r.l.Warning("dropping malformed frame (%d bytes): %v", len(msg), err)
			continue
		}
		r.mu.Lock()
		rt, ok := r.routes[resp.ID]
		delete(r.routes, resp.ID)
		r.mu.Unlock()
		if !ok {
			r.l.Warning("dropping response for unknown id %d", resp.ID)
			continue
		}

		resp.ID = rt.id
		out, err := json.Marshal(resp)
		if err != nil {
			r.l.Warning("dropping response %d: %v", rt.id, err)
			continue
		}
		if err := rt.c.send(out); err != nil {
			r.l.Warning("client dropped: %v", err)
			rt.c.conn.Close()
		}
	}
}
