package checker

import (
	"context"

	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// NullChecker is the checker and retriever for storage locations with no
// HSM behind them. Every operation succeeds immediately: files are always
// online and recalls are trivially complete. It exists so that callers
// never special-case "no HSM configured".
//
// Callbacks are invoked synchronously, before the method returns; the
// exactly-once guarantee still holds.
type NullChecker struct{}

// NewNullChecker returns the no-op checker/retriever.
func NewNullChecker() *NullChecker {
	return &NullChecker{}
}

// Online reports the entity online without touching storage.
func (n *NullChecker) Online(ctx context.Context, entity Entity, cb Callback) error {
	if !entity.IsVerified() {
		return &NotVerifiedError{FileID: entity.EntityID()}
	}

	cb(outcome.Success(true))
	return nil
}

// Retrieve succeeds without touching storage.
func (n *NullChecker) Retrieve(ctx context.Context, entity Entity, cb Callback) error {
	if !entity.IsVerified() {
		return &NotVerifiedError{FileID: entity.EntityID()}
	}

	cb(outcome.Success(true))
	return nil
}

// RetrieveBatch succeeds for every entity without touching storage.
func (n *NullChecker) RetrieveBatch(ctx context.Context, entities []Entity, cb BatchCallback) error {
	results := make([]RetrieveResult, 0, len(entities))
	for _, e := range entities {
		if !e.IsVerified() {
			return &NotVerifiedError{FileID: e.EntityID()}
		}
		results = append(results, RetrieveResult{FileID: e.EntityID(), Result: outcome.Success(true)})
	}

	cb(results)
	return nil
}

var (
	_ Checker   = (*NullChecker)(nil)
	_ Retriever = (*NullChecker)(nil)
)
