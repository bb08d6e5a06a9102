package domain

// Result is the outcome of one advisory port call: either a payload or a
// capability error, never both.
type Result[T any] struct {
	Value T
	Err   *CapabilityError
}

// OK wraps a successful payload.
func OK[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail wraps a capability error.
func Fail[T any](err *CapabilityError) Result[T] { return Result[T]{Err: err} }

// Succeeded reports whether the call produced a payload.
func (r Result[T]) Succeeded() bool { return r.Err == nil }
