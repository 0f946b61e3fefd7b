// Package outcome provides a tagged success/failure container for carrying
// the result of a fallible computation across goroutine boundaries.
//
// An Outcome is either a Success holding a value or a Failure holding an
// error, never both. It exists so that worker-pool code can hand results
// (including errors recovered from panics) to callbacks through a channel
// without losing them across the asynchronous hop. Failure values are inert
// under Map; they can only be transformed through HandleError.
package outcome

// Outcome represents the result of a computation that may have failed.
// Exactly one of the value or the error is populated.
type Outcome[T any] struct {
	value T
	err   error
	ok    bool
}

// Success wraps a value in a successful Outcome.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// Failure wraps an error in a failed Outcome.
func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{err: err}
}

// Attempt runs fn and captures its result: the returned value on success,
// the returned error on failure.
func Attempt[T any](fn func() (T, error)) Outcome[T] {
	v, err := fn()
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// IsSuccess reports whether the outcome holds a value.
func (o Outcome[T]) IsSuccess() bool {
	return o.ok
}

// Get returns the value and error held by the outcome. On success the error
// is nil; on failure the value is the zero value of T.
func (o Outcome[T]) Get() (T, error) {
	return o.value, o.err
}

// Err returns the wrapped error, or nil for a successful outcome.
func (o Outcome[T]) Err() error {
	return o.err
}

// GetOrElse returns the wrapped value, or fallback if the outcome is a
// failure.
func (o Outcome[T]) GetOrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.value
}

// HandleError recovers a failed outcome by mapping its error to a value.
// A successful outcome is returned unchanged.
func (o Outcome[T]) HandleError(fn func(error) T) Outcome[T] {
	if o.ok {
		return o
	}
	return Success(fn(o.err))
}

// Map transforms the value of a successful outcome. A failure passes through
// untouched, carrying its original error.
//
// Map is a package-level function because Go methods cannot introduce new
// type parameters.
func Map[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if !o.ok {
		return Failure[U](o.err)
	}
	return Success(fn(o.value))
}
