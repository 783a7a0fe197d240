package source

import "github.com/canre-io/canre/pkg/protocol"

// Result is the outcome of one upstream lookup: either Found with a
// pre-shaped report, or Unavailable. Unavailable is not an error; it
// marshals to JSON null.
type Result[T any] struct {
	value T
	found bool
}

// Found wraps a report.
func Found[T any](v T) Result[T] {
	return Result[T]{value: v, found: true}
}

// Unavailable returns the no-data outcome.
func Unavailable[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the report and whether it was found.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.found
}

// OK reports whether the result holds data.
func (r Result[T]) OK() bool {
	return r.found
}

// Ptr returns a pointer to the report, or nil when unavailable.
func (r Result[T]) Ptr() *T {
	if !r.found {
		return nil
	}
	v := r.value
	return &v
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if !r.found {
		return []byte("null"), nil
	}
	return protocol.MarshalCompact(r.value)
}
