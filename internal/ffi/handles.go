package ffi

import "sync"

// Handle is an opaque token standing in for a heap-resident object
// across the foreign boundary. Handles are never zero and freed values
// are never reused.
type Handle uintptr

// Registry owns the objects behind one kind of handle. Ownership moves
// explicitly: Put transfers an object in, Take reclaims it exclusively
// (mutators and terminal operations), Restore gives it back, Borrow
// reads it in place, Free destroys it.
type Registry[T any] struct {
	mu   sync.Mutex
	next Handle
	m    map[Handle]T
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{next: 1, m: map[Handle]T{}}
}

// Put registers v and returns its handle.
func (r *Registry[T]) Put(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.m[h] = v
	return h
}

// Borrow returns the object for h, leaving it registered.
func (r *Registry[T]) Borrow(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	return v, ok
}

// Take removes and returns the object for h; pair with Restore for
// non-consuming operations.
func (r *Registry[T]) Take(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	if ok {
		delete(r.m, h)
	}
	return v, ok
}

// Restore re-registers v under its original handle after a Take.
func (r *Registry[T]) Restore(h Handle, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[h] = v
}

// Free removes the object for h, reporting whether it was registered.
// Any use of h afterwards is a caller contract violation.
func (r *Registry[T]) Free(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[h]
	delete(r.m, h)
	return ok
}

// Count returns the number of live handles; used by leak checks.
func (r *Registry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
