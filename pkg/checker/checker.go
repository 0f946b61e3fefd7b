// Package checker defines the capability interfaces for HSM status checks
// and recalls, together with their two implementations: a null checker for
// storage without an HSM behind it, and a worker-pool checker that probes
// the filesystem.
//
// Both operations are asynchronous: they enqueue work and return
// immediately, delivering the result to a callback wrapped in an Outcome so
// that errors survive the goroutine hop. A callback is invoked exactly
// once, never more; precondition failures are reported synchronously via
// the return value and the callback is never invoked for them.
package checker

import (
	"context"
	"fmt"

	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// StorageObject locates the stored content backing a tracked file.
type StorageObject struct {
	// BackendClass identifies the storage backend type holding the object.
	BackendClass string

	// Path is the backend-resolved filesystem path of the object.
	Path string
}

// Entity is the view of a tracked file the checker needs. The record-keeping
// system owns the entity; the checker only reads it.
type Entity interface {
	// EntityID returns the stable identity of the tracked file.
	EntityID() string

	// IsVerified reports whether the file's content has been verified.
	// Status checks are only meaningful for verified files.
	IsVerified() bool

	// PreferredStorageObject resolves the storage object to check.
	PreferredStorageObject() (StorageObject, error)
}

// Callback receives the result of an asynchronous check or recall.
// Callbacks run on the checker's result-delivery goroutine and serialize
// with other deliveries, so they must be fast and non-blocking.
type Callback func(outcome.Outcome[bool])

// RetrieveResult is the per-entity element of a batch recall outcome.
type RetrieveResult struct {
	FileID string
	Result outcome.Outcome[bool]
}

// BatchCallback receives the aggregate result of a batch recall. Every
// input entity appears exactly once in the slice.
type BatchCallback func([]RetrieveResult)

// Checker determines whether the storage object backing an entity is
// online.
type Checker interface {
	// Online checks the online status of entity asynchronously, invoking
	// cb exactly once with the boolean status or the wrapped error.
	//
	// If the entity is unverified, Online returns a *NotVerifiedError
	// synchronously and cb is never invoked.
	Online(ctx context.Context, entity Entity, cb Callback) error
}

// Retriever forces recall of offline objects by reading from them.
type Retriever interface {
	// Retrieve attempts a recall-by-read of the entity's storage object,
	// invoking cb exactly once. Success means the read returned without
	// error.
	Retrieve(ctx context.Context, entity Entity, cb Callback) error

	// RetrieveBatch applies Retrieve to a collection, invoking cb exactly
	// once with the per-entity outcomes.
	RetrieveBatch(ctx context.Context, entities []Entity, cb BatchCallback) error
}

// NotVerifiedError is returned synchronously when a status or recall
// operation is attempted on an unverified entity. The precondition
// violation is surfaced to the caller before any asynchronous work is
// scheduled; it is not retried.
type NotVerifiedError struct {
	FileID string
}

func (e *NotVerifiedError) Error() string {
	return fmt.Sprintf("cannot check HSM status of unverified file %s", e.FileID)
}

// MultipleConfigError indicates that more than one checker configuration
// matches a single storage backend class. Per-backend configuration must be
// unambiguous; resolution fails for the affected entity until the
// duplicate is removed.
type MultipleConfigError struct {
	Class string
	Count int
}

func (e *MultipleConfigError) Error() string {
	return fmt.Sprintf("storage backend class %q has %d HSM checker configurations, want at most one", e.Class, e.Count)
}
