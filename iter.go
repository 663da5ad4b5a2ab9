package forge

import "forge/internal/native"

// ValueIter is a lazy, forward-only traversal of a native linked list
// (module functions, module globals, function arguments). It ends the
// first time the underlying handle is null and is not restartable: each
// traversal needs a fresh iterator from the list's first accessor.
type ValueIter[T any] struct {
	c    *native.Context
	cur  native.ValueRef
	step func(*native.Context, native.ValueRef) native.ValueRef
	wrap func(Value) T
}

// Next returns the next element, or false when the sequence is over.
func (it *ValueIter[T]) Next() (T, bool) {
	if it.cur == native.NoValue {
		var zero T
		return zero, false
	}
	old := it.cur
	it.cur = it.step(it.c, old)
	return it.wrap(Value{it.c, old}), true
}

// Collect drains the iterator into a slice.
func (it *ValueIter[T]) Collect() []T {
	var out []T
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
