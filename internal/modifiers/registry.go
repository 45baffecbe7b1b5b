// Package modifiers keeps the attribute modifiers selectable
// on the kdb struct tags and the wrappers that run them.
package modifiers

import (
	"fmt"
	"sync"

	"github.com/vingarcia/kservice/kmodifiers"
)

type registry struct {
	mu     sync.RWMutex
	byName map[string]kmodifiers.AttrModifier
}

func newRegistry(initial map[string]kmodifiers.AttrModifier) *registry {
	r := &registry{
		byName: map[string]kmodifiers.AttrModifier{},
	}
	for name, modifier := range initial {
		r.byName[name] = modifier
	}
	return r
}

func (r *registry) register(name string, modifier kmodifiers.AttrModifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.byName[name]; found {
		return fmt.Errorf("kdb: cannot register modifier '%s' name is already in use", name)
	}
	r.byName[name] = modifier
	return nil
}

func (r *registry) load(name string) (kmodifiers.AttrModifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modifier, found := r.byName[name]
	if !found {
		return kmodifiers.AttrModifier{}, fmt.Errorf("no modifier found with name '%s'", name)
	}
	return modifier, nil
}

var global = newRegistry(builtins)

func init() {
	kmodifiers.RegisterAttrModifier = Register
}

// Register adds a custom modifier, it panics if the name
// is already taken, including the names of the builtins.
func Register(name string, modifier kmodifiers.AttrModifier) {
	if err := global.register(name, modifier); err != nil {
		panic(err)
	}
}

// Load returns the modifier registered with the input name
func Load(name string) (kmodifiers.AttrModifier, error) {
	return global.load(name)
}
