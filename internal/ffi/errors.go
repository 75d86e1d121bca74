package ffi

import "sync"

// The last-error channel replaces exception propagation across the C
// boundary: each failing operation stores its error in the calling
// thread's slot, and the caller retrieves it with a separate query on
// the same thread.
//
// Slots are keyed by an opaque thread key. The capi layer derives the
// key from the address of a C thread-local anchor, so slots never
// collide across threads; tests pass arbitrary keys.
var lastErrors = struct {
	mu sync.Mutex
	m  map[uintptr]error
}{m: map[uintptr]error{}}

// SetLast stores err in the slot for key, overwriting any prior value.
func SetLast(key uintptr, err error) {
	lastErrors.mu.Lock()
	defer lastErrors.mu.Unlock()
	lastErrors.m[key] = err
}

// LastMessage returns the display text of the slot's value without
// clearing it, or "" when the slot is empty.
func LastMessage(key uintptr) string {
	lastErrors.mu.Lock()
	defer lastErrors.mu.Unlock()
	if err := lastErrors.m[key]; err != nil {
		return err.Error()
	}
	return ""
}

// TakeLast removes and returns the slot's value, or nil when empty.
func TakeLast(key uintptr) error {
	lastErrors.mu.Lock()
	defer lastErrors.mu.Unlock()
	err := lastErrors.m[key]
	delete(lastErrors.m, key)
	return err
}

// NullParameterError reports a required pointer parameter that was NULL,
// identified by name.
type NullParameterError string

func (e NullParameterError) Error() string {
	return "Unexpected NULL parameter " + string(e)
}
