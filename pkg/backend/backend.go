// Package backend tracks which storage backend classes support HSM status
// checks.
//
// Only backends whose resolved location is a path on a POSIX filesystem can
// be probed for allocated blocks. Object stores, for example, have no
// notion of a tape placeholder, so files on them are skipped rather than
// misclassified.
package backend

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultSupportedClasses are the backend classes checkable out of the box:
// anything that resolves to a plain local filesystem path.
var DefaultSupportedClasses = []string{
	"filesystem",
	"local",
}

// UnsupportedBackendError is returned when a tracked file lives on a
// backend class that is not registered for HSM checks. It is a
// configuration mismatch, not a transient fault: the sweep logs it and
// moves on, and the message carries the remediation.
type UnsupportedBackendError struct {
	Class string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf(
		"storage backend class %q does not support HSM status checks; "+
			"add it to the hsm.supported_backends list in the configuration to enable checking",
		e.Class)
}

// Registry is the mutable set of backend classes for which status checks
// are allowed. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]struct{}
}

// NewRegistry builds a registry from the given classes. With no arguments
// the defaults apply.
func NewRegistry(classes ...string) *Registry {
	if len(classes) == 0 {
		classes = DefaultSupportedClasses
	}

	r := &Registry{classes: make(map[string]struct{}, len(classes))}
	for _, c := range classes {
		r.classes[c] = struct{}{}
	}
	return r
}

// Register adds a backend class to the supported set.
func (r *Registry) Register(class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[class] = struct{}{}
}

// Supported reports whether class may be status-checked.
func (r *Registry) Supported(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[class]
	return ok
}

// Check returns an UnsupportedBackendError if class is not registered.
func (r *Registry) Check(class string) error {
	if !r.Supported(class) {
		return &UnsupportedBackendError{Class: class}
	}
	return nil
}

// Classes returns the registered classes in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.classes))
	for c := range r.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
