package model

import (
	"bytes"
	"encoding/json"
)

// Field holds a value derived from loosely-typed upstream data. It is either
// Parsed (a usable value) or a Fallback (the input could not be interpreted).
// Consumers must check the branch before using the value.
type Field[T any] struct {
	value T
	ok    bool
}

// Parsed wraps a successfully interpreted value.
func Parsed[T any](v T) Field[T] { return Field[T]{value: v, ok: true} }

// Fallback returns the "cannot determine" branch.
func Fallback[T any]() Field[T] { return Field[T]{} }

// Get returns the value and whether it was parsed.
func (f Field[T]) Get() (T, bool) { return f.value, f.ok }

// Ok reports whether the field holds a parsed value.
func (f Field[T]) Ok() bool { return f.ok }

// OrElse returns the parsed value or def.
func (f Field[T]) OrElse(def T) T {
	if f.ok {
		return f.value
	}
	return def
}

// Or returns f when parsed, other otherwise.
func (f Field[T]) Or(other Field[T]) Field[T] {
	if f.ok {
		return f
	}
	return other
}

// MarshalJSON encodes a fallback as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes null as a fallback.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Fallback[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Parsed(v)
	return nil
}
