package checker

import "fmt"

// Kind selects a checker/retriever implementation. The set is closed:
// configuration maps backend classes onto these variants instead of
// loading classes by name.
type Kind string

const (
	// KindNone is the null implementation: always online, recall is a
	// no-op.
	KindNone Kind = "none"

	// KindPool is the worker-pool implementation performing real stat
	// probes and recall reads.
	KindPool Kind = "pool"
)

// Valid reports whether k names a known implementation.
func (k Kind) Valid() bool {
	return k == KindNone || k == KindPool
}

// BackendConfig binds one storage backend class to checker and retriever
// implementations. At most one BackendConfig per class may exist.
type BackendConfig struct {
	// BackendClass is the storage backend class this configuration
	// applies to.
	BackendClass string

	// Checker selects the status-check implementation for the class.
	Checker Kind

	// Retriever selects the recall implementation for the class.
	Retriever Kind
}

// Resolver maps an entity's storage backend class to the checker and
// retriever configured for it.
//
// Resolution policy: no configuration for a class means the null
// implementation (callers never special-case missing HSM config); exactly
// one means the configured implementation; more than one is a
// MultipleConfigError, because per-backend configuration must be
// unambiguous.
type Resolver struct {
	configs []BackendConfig
	pool    *PoolChecker
	null    *NullChecker
}

// NewResolver builds a resolver over the given per-backend configurations.
// pool is the process-wide PoolChecker instance; it may be nil only if no
// configuration selects KindPool.
func NewResolver(configs []BackendConfig, pool *PoolChecker) (*Resolver, error) {
	for _, c := range configs {
		if !c.Checker.Valid() {
			return nil, fmt.Errorf("backend %q: unknown checker kind %q", c.BackendClass, c.Checker)
		}
		if !c.Retriever.Valid() {
			return nil, fmt.Errorf("backend %q: unknown retriever kind %q", c.BackendClass, c.Retriever)
		}
		if (c.Checker == KindPool || c.Retriever == KindPool) && pool == nil {
			return nil, fmt.Errorf("backend %q selects the pool implementation but no pool checker was provided", c.BackendClass)
		}
	}

	return &Resolver{
		configs: configs,
		pool:    pool,
		null:    NewNullChecker(),
	}, nil
}

// configFor finds the single configuration for class, if any.
func (r *Resolver) configFor(class string) (*BackendConfig, error) {
	var found *BackendConfig
	count := 0
	for i := range r.configs {
		if r.configs[i].BackendClass == class {
			found = &r.configs[i]
			count++
		}
	}

	if count > 1 {
		return nil, &MultipleConfigError{Class: class, Count: count}
	}
	return found, nil
}

// CheckerFor returns the checker for an entity on the given backend class.
func (r *Resolver) CheckerFor(class string) (Checker, error) {
	cfg, err := r.configFor(class)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.Checker == KindNone {
		return r.null, nil
	}
	return r.pool, nil
}

// RetrieverFor returns the retriever for an entity on the given backend
// class.
func (r *Resolver) RetrieverFor(class string) (Retriever, error) {
	cfg, err := r.configFor(class)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.Retriever == KindNone {
		return r.null, nil
	}
	return r.pool, nil
}
