package provider

import (
	"fmt"

	"github.com/Zhima-Mochi/ministore/internal/domain/payment"
)

// Registry resolves configured payment providers by name. Unconfigured names
// fail fast instead of attempting a call.
type Registry struct {
	providers map[string]payment.Provider
}

func NewRegistry(providers ...payment.Provider) *Registry {
	m := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			m[p.Name()] = p
		}
	}
	return &Registry{providers: m}
}

func (r *Registry) Lookup(name string) (payment.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", payment.ErrUnsupportedProvider, name)
	}
	return p, nil
}
