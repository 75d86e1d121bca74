// Package ffi is the foreign-boundary core: the last-error channel, the
// opaque handle registry, and the callback-backed stream and signer
// bridges. It is cgo-free; the capi package layers C marshaling on top.
// This package should ONLY be imported by capi and its tests.
package ffi
