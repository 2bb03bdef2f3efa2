package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// commandTimeout caps how long a single CDP command may take. 15
// seconds is plenty for navigation and input dispatch.
const commandTimeout = 15 * time.Second

type cdpMessage struct {
	ID     int64 `json:"id,omitempty"`
	Method string `json:"method,omitempty"`
	Params any    `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// cdpConn speaks the DevTools protocol over one websocket: outgoing
// commands carry an id, the listener routes each response back to the
// waiting caller through a per-id channel, and protocol events wake
// any registered waiters.
type cdpConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *cdpResponse

	waitersMu sync.Mutex
	waiters   map[string][]chan struct{}

	closed    chan struct{}
	closeOnce sync.Once

	logger *log.Logger
}

func newCDPConn(conn *websocket.Conn, logger *log.Logger) *cdpConn {
	c := &cdpConn{
		conn:    conn,
		pending: make(map[int64]chan *cdpResponse),
		waiters: make(map[string][]chan struct{}),
		closed:  make(chan struct{}),
		logger:  logger,
	}
	go c.listen()
	return c
}

// call sends one command and blocks for its response.
func (c *cdpConn) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	select {
	case <-c.closed:
		return nil, fmt.Errorf("session closed")
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan *cdpResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	msg := cdpMessage{ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	case <-time.After(commandTimeout):
		c.dropPending(id)
		return nil, fmt.Errorf("%s: timeout waiting for response", method)
	case <-c.closed:
		c.dropPending(id)
		return nil, fmt.Errorf("%s: session closed", method)
	}
}

// expectEvent registers interest in the next occurrence of a protocol
// event. Register before issuing the command that triggers it.
func (c *cdpConn) expectEvent(method string) <-chan struct{} {
	ch := make(chan struct{})
	c.waitersMu.Lock()
	c.waiters[method] = append(c.waiters[method], ch)
	c.waitersMu.Unlock()
	return ch
}

func (c *cdpConn) dropPending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *cdpConn) listen() {
	defer c.close()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if c.logger != nil {
					c.logger.Printf("[CDP] read: %v", err)
				}
			}
			return
		}

		var resp cdpResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			if c.logger != nil {
				c.logger.Printf("[CDP] bad frame: %v", err)
			}
			continue
		}

		if resp.ID != 0 {
			c.pendingMu.Lock()
			ch, ok := c.pending[resp.ID]
			if ok {
				delete(c.pending, resp.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- &resp
			}
			continue
		}

		if resp.Method == "" {
			continue
		}
		c.waitersMu.Lock()
		waiters := c.waiters[resp.Method]
		delete(c.waiters, resp.Method)
		c.waitersMu.Unlock()
		for _, w := range waiters {
			close(w)
		}
	}
}

func (c *cdpConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
