package payment

import (
	"slices"
	"sync"

	"github.com/go-faster/errors"
)

// Names of the built-in gateways.
const (
	NamePaypal = "paypal"
	NameStripe = "stripe"
)

// Registry maps processor names to gateways. Names are matched exactly,
// case included.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register adds g under name. Registering the same name twice is an error.
func (r *Registry) Register(name string, g Gateway) error {
	if name == "" {
		return errors.New("gateway name is empty")
	}
	if g == nil {
		return errors.Errorf("gateway %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.gateways[name]; ok {
		return errors.Errorf("gateway %q already registered", name)
	}
	r.gateways[name] = g
	return nil
}

// Lookup returns the gateway registered under name.
func (r *Registry) Lookup(name string) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[name]
	return g, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
