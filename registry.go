package agentm

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// Registry maps collection names to the kinds that own them. It is meant to
// be filled once at startup and only read afterwards; entries are never
// removed.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]AnyKind
}

// DefaultRegistry is the process-wide registry used by the package-level
// Register and Lookup.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]AnyKind)}
}

// Register adds concrete kinds under their collection names. Abstract kinds
// are skipped. Registering the same kind twice is a no-op; a different kind
// for a taken collection fails with ErrDuplicateCollection. Nothing is
// registered if any kind fails.
func (reg *Registry) Register(kinds ...AnyKind) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	pending := make(map[string]AnyKind, len(kinds))
	for _, k := range kinds {
		if k.IsAbstract() {
			continue
		}
		coll := k.Collection()
		if coll == "" {
			return errors.Wrapf(ErrNoCollection, "registering %s", k.Name())
		}
		existing := reg.kinds[coll]
		if existing == nil {
			existing = pending[coll]
		}
		if existing != nil && existing != k {
			return errors.Wrapf(ErrDuplicateCollection, "registering %s as %q (taken by %s)", k.Name(), coll, existing.Name())
		}
		pending[coll] = k
	}
	for coll, k := range pending {
		reg.kinds[coll] = k
	}
	return nil
}

func (reg *Registry) MustRegister(kinds ...AnyKind) {
	if err := reg.Register(kinds...); err != nil {
		panic(err)
	}
}

func (reg *Registry) Lookup(collection string) (AnyKind, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	k, ok := reg.kinds[collection]
	return k, ok
}

// Collections returns the registered collection names, sorted.
func (reg *Registry) Collections() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.kinds))
	for name := range reg.kinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.kinds)
}

func Register(kinds ...AnyKind) error {
	return DefaultRegistry.Register(kinds...)
}

func MustRegister(kinds ...AnyKind) {
	DefaultRegistry.MustRegister(kinds...)
}

func Lookup(collection string) (AnyKind, bool) {
	return DefaultRegistry.Lookup(collection)
}
