// The capi package exports the engine as a C API. Build it as a shared
// library:
//
//	go build -buildmode=c-shared -o libc2pa.so ./capi
//
// All CGO complexity is isolated here; the bridge semantics live in
// internal/ffi and the engine in pkg/c2pa.
package main

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include <string.h>
#include "c2pa_types.h"

// One anchor per thread; its address is the thread key for the
// last-error channel.
static __thread char c2pa_tls_anchor;

static uintptr_t c2pa_thread_key(void) { return (uintptr_t)&c2pa_tls_anchor; }

// cgo cannot call C function pointers directly; these trampolines do.
static intptr_t c2pa_call_read(C2paReadCallback cb, StreamContext *context, uint8_t *data, size_t len) {
	return cb(context, data, len);
}

static int64_t c2pa_call_seek(C2paSeekCallback cb, StreamContext *context, int64_t offset, int mode) {
	return cb(context, offset, mode);
}

static intptr_t c2pa_call_write(C2paWriteCallback cb, StreamContext *context, const uint8_t *data, size_t len) {
	return cb(context, data, len);
}

static intptr_t c2pa_call_flush(C2paFlushCallback cb, StreamContext *context) {
	return cb(context);
}

static intptr_t c2pa_call_signer(C2paSignerCallback cb, const void *context, const uint8_t *data, size_t len, uint8_t *signed_bytes, size_t signed_len) {
	return cb(context, data, len, signed_bytes, signed_len);
}

static intptr_t c2pa_call_sign(C2paSignCallback cb, uint8_t *data, size_t len, uint8_t *signature, intptr_t sig_max_len) {
	return cb(data, len, signature, sig_max_len);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"git.stream.place/streamplace/c2pa-ffi/internal/ffi"
	"git.stream.place/streamplace/c2pa-ffi/pkg/c2pa"
)

const (
	libName    = "c2pa-ffi"
	libVersion = "0.9.0"
)

// One registry per handle kind; each kind has exactly one matching free
// entry point.
var (
	streams       = ffi.NewRegistry[*ffi.Stream]()
	readers       = ffi.NewRegistry[*c2pa.Reader]()
	builders      = ffi.NewRegistry[*c2pa.Builder]()
	signers       = ffi.NewRegistry[c2pa.Signer]()
	stores        = ffi.NewRegistry[*c2pa.ManifestStore]()
	storeBuilders = ffi.NewRegistry[*c2pa.Builder]()
)

// threadKey identifies the calling thread for the last-error channel.
func threadKey() uintptr {
	return uintptr(C.c2pa_thread_key())
}

func setLast(key uintptr, err error) {
	ffi.SetLast(key, err)
}

// toCString hands a Go string to the caller as C-allocated memory; it
// must be released with c2pa_string_free.
func toCString(s string) *C.char {
	return C.CString(s)
}

// requireString decodes a required C string, recording a parameter-named
// error when it is NULL.
func requireString(key uintptr, p *C.char, name string) (string, bool) {
	if p == nil {
		setLast(key, ffi.NullParameterError(name))
		return "", false
	}
	return C.GoString(p), true
}

// optionalString decodes an optional C string; NULL means absent.
func optionalString(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func handlePointer(h ffi.Handle) unsafe.Pointer {
	return unsafe.Pointer(uintptr(h)) //nolint:govet // registry token, not a real pointer
}

func pointerHandle(p unsafe.Pointer) ffi.Handle {
	return ffi.Handle(uintptr(p))
}

// newCStream adapts the four C callbacks plus context into the bridge's
// stream. The stream owns context; Close frees it.
func newCStream(context *C.StreamContext, reader C.C2paReadCallback, seeker C.C2paSeekCallback, writer C.C2paWriteCallback, flusher C.C2paFlushCallback) *ffi.Stream {
	return ffi.NewStream(ffi.StreamCallbacks{
		Read: func(p []byte) int {
			var buf *C.uint8_t
			if len(p) > 0 {
				buf = (*C.uint8_t)(unsafe.Pointer(&p[0]))
			}
			return int(C.c2pa_call_read(reader, context, buf, C.size_t(len(p))))
		},
		Seek: func(offset int64, mode int) int64 {
			return int64(C.c2pa_call_seek(seeker, context, C.int64_t(offset), C.int(mode)))
		},
		Write: func(p []byte) int {
			var buf *C.uint8_t
			if len(p) > 0 {
				buf = (*C.uint8_t)(unsafe.Pointer(&p[0]))
			}
			return int(C.c2pa_call_write(writer, context, buf, C.size_t(len(p))))
		},
		Flush: func() int {
			return int(C.c2pa_call_flush(flusher, context))
		},
		Close: func() {
			if context != nil {
				C.free(unsafe.Pointer(context))
			}
		},
	})
}

// newSignerSignFunc binds the stateless signer callback and its context.
func newSignerSignFunc(context unsafe.Pointer, callback C.C2paSignerCallback) ffi.SignFunc {
	return func(data []byte, sig []byte) int {
		var dptr, sptr *C.uint8_t
		if len(data) > 0 {
			dptr = (*C.uint8_t)(unsafe.Pointer(&data[0]))
		}
		if len(sig) > 0 {
			sptr = (*C.uint8_t)(unsafe.Pointer(&sig[0]))
		}
		return int(C.c2pa_call_signer(callback, context, dptr, C.size_t(len(data)), sptr, C.size_t(len(sig))))
	}
}

// newConfiguredSignFunc binds the configured-signer callback.
func newConfiguredSignFunc(callback C.C2paSignCallback) ffi.SignFunc {
	return func(data []byte, sig []byte) int {
		var dptr, sptr *C.uint8_t
		if len(data) > 0 {
			dptr = (*C.uint8_t)(unsafe.Pointer(&data[0]))
		}
		if len(sig) > 0 {
			sptr = (*C.uint8_t)(unsafe.Pointer(&sig[0]))
		}
		return int(C.c2pa_call_sign(callback, dptr, C.size_t(len(data)), sptr, C.intptr_t(len(sig))))
	}
}

func signingAlgName(alg C.C2paSigningAlg) (string, error) {
	switch alg {
	case C.Es256:
		return string(c2pa.ES256), nil
	case C.Es384:
		return string(c2pa.ES384), nil
	case C.Es512:
		return string(c2pa.ES512), nil
	case C.Ps256:
		return string(c2pa.PS256), nil
	case C.Ps384:
		return string(c2pa.PS384), nil
	case C.Ps512:
		return string(c2pa.PS512), nil
	case C.Ed25519:
		return string(c2pa.ED25519), nil
	}
	return "", fmt.Errorf("unknown signing algorithm: %d", int(alg))
}

func main() {}
