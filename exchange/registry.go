package exchange

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps asset names and trading symbols to instruments. A backend
// populates it during Setup and then freezes it; after that any number of
// callers may read it concurrently. Duplicate registrations are rejected
// rather than silently overwritten.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Instrument
	bySymbol map[string]*Instrument
	frozen   bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Instrument),
		bySymbol: make(map[string]*Instrument),
	}
}

// Register inserts the instrument under both its name and symbol.
func (r *Registry) Register(inst *Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errors.Wrapf(ErrRegistryFrozen, "cannot register %s", inst.Name)
	}
	if _, ok := r.byName[inst.Name]; ok {
		return errors.Wrapf(ErrDuplicateInstrument, "name %s", inst.Name)
	}
	if _, ok := r.bySymbol[inst.Symbol]; ok {
		return errors.Wrapf(ErrDuplicateInstrument, "symbol %s", inst.Symbol)
	}
	r.byName[inst.Name] = inst
	r.bySymbol[inst.Symbol] = inst
	return nil
}

// Freeze marks the population phase finished. Registrations after Freeze fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// ByName looks an instrument up by its asset name.
func (r *Registry) ByName(name string) (*Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrInstrumentNotFound, "name %s", name)
	}
	return inst, nil
}

// BySymbol looks an instrument up by its trading-pair symbol.
func (r *Registry) BySymbol(symbol string) (*Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.bySymbol[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrInstrumentNotFound, "symbol %s", symbol)
	}
	return inst, nil
}

// Len returns the number of registered instruments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// All returns every registered instrument, ordered by symbol.
func (r *Registry) All() []*Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instrument, 0, len(r.bySymbol))
	for _, inst := range r.bySymbol {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
