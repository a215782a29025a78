package domain

// Result carries the outcome of an operation that ran as an asynchronous task.
// Exactly one of Value and Err is meaningful: Err == nil means success.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result is a success.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Unwrap returns the value and the error.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}
