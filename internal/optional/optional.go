// Package optional holds a value that is either present or absent.
package optional

// Value is a T that may be absent. The zero Value is absent.
type Value[T any] struct {
	value T
	ok    bool
}

// Some returns a present Value holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{value: v, ok: true}
}

// None returns an absent Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the held value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.ok
}

// IsPresent reports whether a value is held.
func (v Value[T]) IsPresent() bool {
	return v.ok
}

// Or returns the held value, or def when absent.
func (v Value[T]) Or(def T) T {
	if !v.ok {
		return def
	}
	return v.value
}

// Override returns o when it is present, otherwise v.
func (v Value[T]) Override(o Value[T]) Value[T] {
	if o.ok {
		return o
	}
	return v
}
