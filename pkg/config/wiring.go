package config

import (
	"github.com/marmos91/hsmwatch/pkg/checker"
)

// CheckerBackends converts the configured backend bindings into the
// resolver's form. Entries are passed through as-is: resolution reports
// duplicate classes when they are actually looked up.
func (c *HSMConfig) CheckerBackends() []checker.BackendConfig {
	out := make([]checker.BackendConfig, 0, len(c.Backends))
	for _, b := range c.Backends {
		out = append(out, checker.BackendConfig{
			BackendClass: b.Class,
			Checker:      checker.Kind(b.Checker),
			Retriever:    checker.Kind(b.Retriever),
		})
	}
	return out
}

// PoolEnabled reports whether any backend binding selects the pool
// implementation, in which case the composition root must start a pool
// checker.
func (c *HSMConfig) PoolEnabled() bool {
	for _, b := range c.Backends {
		if checker.Kind(b.Checker) == checker.KindPool || checker.Kind(b.Retriever) == checker.KindPool {
			return true
		}
	}
	return false
}
