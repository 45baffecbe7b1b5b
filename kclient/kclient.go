// Package kclient implements a Go client for the websocket
// endpoint of a kservice.App.
package kclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vingarcia/kservice"
)

// ErrClosed is returned by the calls made after the connection is closed
// or that were still waiting for a response when it closed.
var ErrClosed = errors.New("kclient: the connection is closed")

// ErrTimeout is returned when the server doesn't respond
// a call within Config.Timeout.
var ErrTimeout = errors.New("kclient: timeout waiting for the response")

const writeWait = 10 * time.Second

// Config describes the optional arguments accepted by Dial()
type Config struct {
	// Timeout limits the time waiting for each response, defaults to 10s
	Timeout time.Duration

	// Header is sent on the websocket handshake, e.g. for authentication
	Header http.Header

	// Logger is called once for every call, defaults to no logging
	Logger kservice.LoggerFn
}

// SetDefaultValues sets the default config values if unset.
func (c *Config) SetDefaultValues() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Client is a connection to the websocket endpoint of a kservice.App,
// it is safe for concurrent use.
type Client struct {
	ws     *websocket.Conn
	config Config

	lastUID uint64

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan kservice.Message
	listeners map[string][]func(result json.RawMessage)

	// events received but not yet passed to the listeners,
	// newEvents is signaled every time the queue grows.
	events    []kservice.Message
	newEvents chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the websocket endpoint of a kservice.App, e.g.:
//
//	client, err := kclient.Dial(ctx, "ws://localhost:8008/ws", kclient.Config{})
func Dial(ctx context.Context, url string, config Config) (*Client, error) {
	config.SetDefaultValues()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, config.Header)
	if err != nil {
		return nil, fmt.Errorf("kclient: unable to connect to %s: %w", url, err)
	}

	c := &Client{
		ws:        ws,
		config:    config,
		pending:   map[string]chan kservice.Message{},
		listeners: map[string][]func(json.RawMessage){},
		newEvents: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	go c.dispatchLoop()

	return c, nil
}

// Close closes the connection, the calls waiting
// for a response fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// Done returns a channel that is closed when the connection closes
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		_, rawMsg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg kservice.Message
		if err := json.Unmarshal(rawMsg, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case kservice.MessageResponse:
			c.mu.Lock()
			ch, found := c.pending[msg.UID]
			delete(c.pending, msg.UID)
			c.mu.Unlock()

			if found {
				ch <- msg
			}

		case kservice.MessageEvent:
			c.mu.Lock()
			c.events = append(c.events, msg)
			c.mu.Unlock()

			select {
			case c.newEvents <- struct{}{}:
			default:
			}
		}
	}
}

// dispatchLoop runs the listeners in the order the events arrived,
// it runs apart from readLoop so the listeners can make calls
// with the same client while the responses keep being read.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.newEvents:
		}

		c.mu.Lock()
		events := c.events
		c.events = nil
		c.mu.Unlock()

		for _, msg := range events {
			c.mu.Lock()
			listeners := c.listeners[eventKey(msg.Name, msg.Action)]
			c.mu.Unlock()

			for _, fn := range listeners {
				fn(msg.Result)
			}
		}
	}
}

func (c *Client) call(ctx context.Context, serviceName string, method string, result interface{}, args []interface{}) (err error) {
	start := time.Now()
	if c.config.Logger != nil {
		defer func() {
			c.config.Logger(ctx, kservice.LogValues{
				Transport: kservice.TransportWebsocket,
				Service:   serviceName,
				Method:    method,
				Duration:  time.Since(start),
				Err:       err,
			})
		}()
	}

	rawArgs := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		rawArg, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("kclient: unable to encode argument %d: %w", i, err)
		}
		rawArgs = append(rawArgs, rawArg)
	}

	uid := strconv.FormatUint(atomic.AddUint64(&c.lastUID, 1), 10)
	responseCh := make(chan kservice.Message, 1)

	c.mu.Lock()
	c.pending[uid] = responseCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
	}()

	err = c.write(kservice.Message{
		Type:   kservice.MessageRequest,
		UID:    uid,
		Name:   serviceName,
		Action: method,
		Args:   rawArgs,
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(c.config.Timeout)
	defer timer.Stop()

	var response kservice.Message
	select {
	case response = <-responseCh:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	case <-c.done:
		return ErrClosed
	}

	if response.Error != nil {
		return response.Error
	}

	if result == nil || len(response.Result) == 0 {
		return nil
	}

	err = json.Unmarshal(response.Result, result)
	if err != nil {
		return fmt.Errorf("kclient: unable to decode the result of %s.%s: %w", serviceName, method, err)
	}
	return nil
}

func (c *Client) write(msg kservice.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.ws.WriteJSON(msg)
	if err != nil {
		return fmt.Errorf("kclient: unable to send message: %w", err)
	}
	return nil
}

func eventKey(serviceName string, action string) string {
	return serviceName + "/" + action
}
