package kservice

import (
	"context"
)

// The transports a call can arrive from, available on HookContext.Transport
const (
	TransportInternal  = "internal"
	TransportREST      = "rest"
	TransportWebsocket = "websocket"
)

// HookContext describes a single service call, it is shared by all
// the hooks of the call so before hooks may change the Args and after
// hooks may change the Result.
type HookContext struct {
	App     *App
	Service *Service
	Method  string
	Args    Args
	Result  interface{}

	// Conn is only set on calls received via websocket
	Conn      *Conn
	Transport string
}

// Hook is a function that runs before or after the methods of a service,
// returning an error aborts the call with that error.
type Hook func(ctx context.Context, hc *HookContext) error

// Hooks maps method names to the hooks that should run around them,
// the hooks registered with the key "all" run for every method.
type Hooks struct {
	Before map[string][]Hook
	After  map[string][]Hook
}

// AllMethods is the key used on Hooks for registering
// hooks that run for every method of a service.
const AllMethods = "all"

func (h *Hooks) add(other Hooks) {
	h.Before = appendHooks(h.Before, other.Before)
	h.After = appendHooks(h.After, other.After)
}

func appendHooks(dst map[string][]Hook, src map[string][]Hook) map[string][]Hook {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = map[string][]Hook{}
	}
	for method, hooks := range src {
		dst[method] = append(dst[method], hooks...)
	}
	return dst
}

// forMethod returns the hooks registered for "all" followed
// by the ones registered for the informed method.
func forMethod(hooks map[string][]Hook, method string) []Hook {
	all := hooks[AllMethods]
	specific := hooks[method]
	if len(specific) == 0 {
		return all
	}

	result := make([]Hook, 0, len(all)+len(specific))
	result = append(result, all...)
	return append(result, specific...)
}

func runHooks(ctx context.Context, hooks []Hook, hc *HookContext) error {
	for _, hook := range hooks {
		if err := hook(ctx, hc); err != nil {
			return err
		}
	}
	return nil
}
