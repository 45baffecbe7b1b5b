package kservice

import (
	"context"
	"encoding/json"
	"fmt"
)

// PublishFn selects the channels that should receive the result of a
// call, it runs after every successful create, update, updateMany,
// delete and deleteMany call.
type PublishFn func(ctx context.Context, hc *HookContext) (channels []string)

// OnConnection registers a function to be called
// every time a new client connects via websocket.
func (a *App) OnConnection(fn func(conn *Conn)) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.hub.onConnection = append(a.hub.onConnection, fn)
}

// OnDisconnection registers a function to be called
// every time a websocket client disconnects.
func (a *App) OnDisconnection(fn func(conn *Conn)) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.hub.onDisconnection = append(a.hub.onDisconnection, fn)
}

// JoinChannel adds the connection to the channel, the
// connection leaves all its channels when it disconnects.
func (a *App) JoinChannel(channel string, conn *Conn) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()

	if _, connected := a.hub.conns[conn]; !connected {
		return
	}

	members, found := a.hub.channels[channel]
	if !found {
		members = map[*Conn]struct{}{}
		a.hub.channels[channel] = members
	}
	members[conn] = struct{}{}
}

// LeaveChannel removes the connection from the channel
func (a *App) LeaveChannel(channel string, conn *Conn) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()

	members := a.hub.channels[channel]
	delete(members, conn)
	if len(members) == 0 {
		delete(a.hub.channels, channel)
	}
}

// ChannelSize returns the number of connections on the channel
func (a *App) ChannelSize(channel string) int {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return len(a.hub.channels[channel])
}

// Publish registers a function that selects the channels where the
// results of the calls are published, e.g.:
//
//	app.Publish(func(ctx context.Context, hc *kservice.HookContext) []string {
//		return []string{"anonymous"}
//	})
func (a *App) Publish(fn PublishFn) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.hub.publishers = append(a.hub.publishers, fn)
}

// publish sends the result of the call as an event to every
// connection of the channels selected by the publishers,
// connections on more than one of them receive it only once.
func (a *App) publish(ctx context.Context, hc *HookContext) {
	a.hub.mu.Lock()
	publishers := a.hub.publishers
	a.hub.mu.Unlock()

	if len(publishers) == 0 {
		return
	}

	var channels []string
	for _, fn := range publishers {
		channels = append(channels, fn(ctx, hc)...)
	}
	if len(channels) == 0 {
		return
	}

	rawResult, err := json.Marshal(hc.Result)
	if err != nil {
		a.log(ctx, LogValues{
			Transport: TransportWebsocket,
			Service:   hc.Service.name,
			Method:    hc.Method,
			Err:       fmt.Errorf("kservice: unable to encode event: %w", err),
		})
		return
	}

	event := Message{
		Type:   MessageEvent,
		Name:   hc.Service.name,
		Action: hc.Method,
		Result: rawResult,
	}

	a.hub.mu.Lock()
	recipients := map[*Conn]struct{}{}
	for _, channel := range channels {
		for conn := range a.hub.channels[channel] {
			recipients[conn] = struct{}{}
		}
	}
	a.hub.mu.Unlock()

	for conn := range recipients {
		conn.send(event)
	}
}
