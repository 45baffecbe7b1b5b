package kservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum size of the messages received from the peers.
	maxMessageSize = 1 << 20

	// Number of outgoing messages buffered per connection, connections
	// that fall behind this limit are closed.
	sendBufferSize = 256
)

// Conn is a client connected via websocket
type Conn struct {
	id string
	ws *websocket.Conn

	out  chan Message
	done chan struct{}

	// ctx is canceled when the connection closes
	// aborting the calls still in progress
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	mu   sync.RWMutex
	data map[string]interface{}
}

// ID returns an identifier unique among the connections of the App
func (c *Conn) ID() string {
	return c.id
}

// Set stores a value on the connection, e.g. the authenticated
// user, so it is available for the hooks of later calls.
func (c *Conn) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get returns a value stored with Conn.Set()
func (c *Conn) Get(key string) (value interface{}, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, found = c.data[key]
	return value, found
}

// Close disconnects the client, it is safe to call it more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// send queues a message to the client and reports
// whether it was queued.
func (c *Conn) send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- msg:
		return true
	default:
		c.Close()
		return false
	}
}

// writeLoop is the only goroutine writing on the websocket,
// it stops when the connection is closed.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

func (a *App) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already responded with the error
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &Conn{
		id:     a.hub.nextConnID(),
		ws:     ws,
		out:    make(chan Message, sendBufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		data:   map[string]interface{}{},
	}

	if !a.hub.register(conn) {
		ws.Close()
		return
	}
	defer a.hub.unregister(conn)

	go conn.writeLoop()
	a.readLoop(conn)
}

// readLoop reads the requests of the client until the connection
// is closed, each request is handled on its own goroutine so slow
// calls don't block the others.
//
// Once the client disconnects the calls still running are canceled
// and readLoop waits for them before returning.
func (a *App) readLoop(conn *Conn) {
	var wg sync.WaitGroup
	defer wg.Wait()
	defer conn.Close()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, rawMsg, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		err = json.Unmarshal(rawMsg, &msg)
		if err != nil {
			conn.send(Message{
				Type:  MessageResponse,
				Error: NewError(CodeBadRequest, "invalid message: %s", err),
			})
			continue
		}

		if msg.Type != MessageRequest {
			conn.send(Message{
				Type:  MessageResponse,
				UID:   msg.UID,
				Error: NewError(CodeBadRequest, "unexpected message type: '%s'", msg.Type),
			})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.send(a.handleRequest(conn, msg))
		}()
	}
}

func (a *App) handleRequest(conn *Conn, msg Message) Message {
	ctx, cancel := a.requestContext(conn.ctx)
	defer cancel()

	response := Message{
		Type: MessageResponse,
		UID:  msg.UID,
	}

	result, err := a.Service(msg.Name).call(ctx, msg.Action, rawArgs(msg.Args), TransportWebsocket, conn)
	if err != nil {
		response.Error = asError(err)
		return response
	}

	response.Result, err = json.Marshal(result)
	if err != nil {
		response.Error = NewError(CodeInternal, "unable to encode result: %s", err)
	}
	return response
}

// hub keeps track of the connected clients and of the channels they joined
type hub struct {
	app *App

	lastID uint64

	mu       sync.Mutex
	closed   bool
	conns    map[*Conn]struct{}
	channels map[string]map[*Conn]struct{}
	wg       sync.WaitGroup

	onConnection    []func(*Conn)
	onDisconnection []func(*Conn)
	publishers      []PublishFn
}

func newHub(app *App) *hub {
	return &hub{
		app:      app,
		conns:    map[*Conn]struct{}{},
		channels: map[string]map[*Conn]struct{}{},
	}
}

func (h *hub) nextConnID() string {
	return fmt.Sprintf("conn-%d", atomic.AddUint64(&h.lastID, 1))
}

func (h *hub) register(conn *Conn) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	handlers := h.onConnection
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(conn)
	}
	return true
}

func (h *hub) unregister(conn *Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	for name, members := range h.channels {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.channels, name)
		}
	}
	handlers := h.onDisconnection
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(conn)
	}
	h.wg.Done()
}

// closeAll disconnects every client and waits for their disconnection
// handlers, new connections are refused until reopen is called.
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	h.wg.Wait()
}

func (h *hub) reopen() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = false
}
