package models

// Field is one optional value in a partial update.
//
// The zero Field is unset and leaves the stored value untouched. Set replaces
// it and Null clears it, so "not supplied" and "explicitly cleared" stay
// distinguishable for nullable columns.
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// Set returns a Field that replaces the stored value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Null returns a Field that clears a nullable stored value.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// IsSet returns true if the field was supplied, including as Null.
func (f Field[T]) IsSet() bool { return f.set }

// IsNull returns true if the field was supplied as Null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get returns the value and whether a non-null value was supplied.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set && !f.null
}

// Ptr returns a pointer to the value, or nil when unset or null.
func (f Field[T]) Ptr() *T {
	if v, ok := f.Get(); ok {
		return &v
	}
	return nil
}

// FieldFromPtr returns Set(*p) for a non-nil pointer and Null otherwise.
func FieldFromPtr[T any](p *T) Field[T] {
	if p == nil {
		return Null[T]()
	}
	return Set(*p)
}
