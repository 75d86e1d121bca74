package main

/*
#cgo CFLAGS: -I${SRCDIR}
#include <stdlib.h>
#include "c2pa_types.h"
*/
import "C"

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"unsafe"

	"git.stream.place/streamplace/c2pa-ffi/internal/ffi"
	"git.stream.place/streamplace/c2pa-ffi/pkg/c2pa"
)

// Every entry point follows the same shape: null checks with
// parameter-named errors, input decoding, a single engine call, then
// translation into the boundary's return convention (opaque handle,
// non-negative length, owned string, or failure sentinel plus an error
// channel write on the calling thread).

// c2pa_version returns a version string for logging.
// The returned value MUST be released by calling c2pa_string_free.
//
//export c2pa_version
func c2pa_version() *C.char {
	return toCString(fmt.Sprintf("%s/%s %s/%s", libName, libVersion, c2pa.Name, c2pa.Version))
}

// c2pa_error returns the last error message recorded on the calling
// thread, or an empty string. The returned value MUST be released by
// calling c2pa_string_free.
//
//export c2pa_error
func c2pa_error() *C.char {
	return toCString(ffi.LastMessage(threadKey()))
}

// c2pa_string_free frees a string allocated by this library. Can only be
// called once per string; the string is invalid afterwards.
//
//export c2pa_string_free
func c2pa_string_free(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// c2pa_release_string is c2pa_string_free, kept for api compatibility.
//
//export c2pa_release_string
func c2pa_release_string(s *C.char) {
	c2pa_string_free(s)
}

// c2pa_load_settings loads engine settings from a serialized document.
// Returns 0 on success, -1 on failure.
//
//export c2pa_load_settings
func c2pa_load_settings(settings *C.char, format *C.char) C.int {
	key := threadKey()
	settingsStr, ok := requireString(key, settings, "settings")
	if !ok {
		return -1
	}
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	if err := c2pa.LoadSettings(settingsStr, formatStr); err != nil {
		setLast(key, err)
		return -1
	}
	return 0
}

// c2pa_supported_formats returns a JSON array of supported mime types
// and extensions. The returned value MUST be released by calling
// c2pa_string_free.
//
//export c2pa_supported_formats
func c2pa_supported_formats() *C.char {
	bs, err := json.Marshal(c2pa.SupportedFormats())
	if err != nil {
		setLast(threadKey(), err)
		return nil
	}
	return toCString(string(bs))
}

// c2pa_read_file returns a manifest store JSON string for the asset at
// path. Binary resources are written to data_dir when provided; data_dir
// may be NULL. Returns NULL on failure; the error is retrievable via
// c2pa_error. The returned value MUST be released by calling
// c2pa_string_free.
//
//export c2pa_read_file
func c2pa_read_file(path *C.char, dataDir *C.char) *C.char {
	key := threadKey()
	pathStr, ok := requireString(key, path, "path")
	if !ok {
		return nil
	}
	storeJSON, err := c2pa.ReadFile(pathStr, optionalString(dataDir))
	if err != nil {
		setLast(key, err)
		return nil
	}
	return toCString(storeJSON)
}

// c2pa_read_ingredient_file returns an Ingredient JSON string for the
// asset at path. Thumbnails and manifest data are written to data_dir,
// which is required here. Returns NULL on failure. The returned value
// MUST be released by calling c2pa_string_free.
//
//export c2pa_read_ingredient_file
func c2pa_read_ingredient_file(path *C.char, dataDir *C.char) *C.char {
	key := threadKey()
	pathStr, ok := requireString(key, path, "path")
	if !ok {
		return nil
	}
	dataDirStr, ok := requireString(key, dataDir, "data_dir")
	if !ok {
		return nil
	}
	ingJSON, err := c2pa.ReadIngredientFile(pathStr, dataDirStr)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return toCString(ingJSON)
}

// c2pa_sign_file signs the asset at source_path with the given manifest
// definition and writes the output to dest_path. Returns the manifest
// store JSON on success, NULL on failure. The returned value MUST be
// released by calling c2pa_string_free.
//
//export c2pa_sign_file
func c2pa_sign_file(sourcePath *C.char, destPath *C.char, manifest *C.char, signerInfo *C.C2paSignerInfo, dataDir *C.char) *C.char {
	key := threadKey()
	sourceStr, ok := requireString(key, sourcePath, "source_path")
	if !ok {
		return nil
	}
	destStr, ok := requireString(key, destPath, "dest_path")
	if !ok {
		return nil
	}
	manifestStr, ok := requireString(key, manifest, "manifest")
	if !ok {
		return nil
	}
	if signerInfo == nil {
		setLast(key, ffi.NullParameterError("signer_info"))
		return nil
	}
	algStr, ok := requireString(key, signerInfo.alg, "signer_info.alg")
	if !ok {
		return nil
	}
	certStr, ok := requireString(key, signerInfo.sign_cert, "signer_info.sign_cert")
	if !ok {
		return nil
	}
	keyStr, ok := requireString(key, signerInfo.private_key, "signer_info.private_key")
	if !ok {
		return nil
	}
	info := &c2pa.SignerInfo{
		Alg:        algStr,
		SignCert:   []byte(certStr),
		PrivateKey: []byte(keyStr),
		TAURL:      optionalString(signerInfo.ta_url),
	}
	manifestBytes, err := c2pa.SignFile(sourceStr, destStr, manifestStr, info, optionalString(dataDir))
	if err != nil {
		setLast(key, err)
		return nil
	}
	return toCString(string(manifestBytes))
}

// c2pa_create_stream wraps a context plus four callbacks as a stream.
// The context and callbacks must remain valid until
// c2pa_release_stream, which also destroys the context. Returns NULL on
// failure.
//
//export c2pa_create_stream
func c2pa_create_stream(context *C.StreamContext, reader C.C2paReadCallback, seeker C.C2paSeekCallback, writer C.C2paWriteCallback, flusher C.C2paFlushCallback) *C.C2paStream {
	key := threadKey()
	if reader == nil {
		setLast(key, ffi.NullParameterError("reader"))
		return nil
	}
	if seeker == nil {
		setLast(key, ffi.NullParameterError("seeker"))
		return nil
	}
	if writer == nil {
		setLast(key, ffi.NullParameterError("writer"))
		return nil
	}
	if flusher == nil {
		setLast(key, ffi.NullParameterError("flusher"))
		return nil
	}
	h := streams.Put(newCStream(context, reader, seeker, writer, flusher))
	return (*C.C2paStream)(handlePointer(h))
}

// c2pa_release_stream frees a stream, destroying its context. Can only
// be called once; the stream is invalid afterwards.
//
//export c2pa_release_stream
func c2pa_release_stream(stream *C.C2paStream) {
	if stream == nil {
		return
	}
	if s, ok := streams.Take(pointerHandle(unsafe.Pointer(stream))); ok {
		s.Close()
	}
}

func borrowStream(key uintptr, stream *C.C2paStream, name string) (*ffi.Stream, bool) {
	if stream == nil {
		setLast(key, ffi.NullParameterError(name))
		return nil, false
	}
	s, ok := streams.Borrow(pointerHandle(unsafe.Pointer(stream)))
	if !ok {
		setLast(key, fmt.Errorf("invalid stream handle for %s", name))
		return nil, false
	}
	return s, true
}

// c2pa_reader_from_stream parses the manifest store from an asset
// stream with the given mime type. Returns NULL on failure. The
// returned value MUST be released by calling c2pa_reader_free.
//
//export c2pa_reader_from_stream
func c2pa_reader_from_stream(format *C.char, stream *C.C2paStream) *C.C2paReader {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return nil
	}
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return nil
	}
	reader, err := c2pa.FromStream(formatStr, s)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paReader)(handlePointer(readers.Put(reader)))
}

// c2pa_reader_free frees a reader. Can only be called once; the handle
// is invalid afterwards.
//
//export c2pa_reader_free
func c2pa_reader_free(readerPtr *C.C2paReader) {
	if readerPtr != nil {
		readers.Free(pointerHandle(unsafe.Pointer(readerPtr)))
	}
}

// c2pa_reader_json returns the manifest store JSON, including validation
// status. Returns NULL on failure. The returned value MUST be released
// by calling c2pa_string_free.
//
//export c2pa_reader_json
func c2pa_reader_json(readerPtr *C.C2paReader) *C.char {
	key := threadKey()
	if readerPtr == nil {
		setLast(key, ffi.NullParameterError("reader_ptr"))
		return nil
	}
	reader, ok := readers.Borrow(pointerHandle(unsafe.Pointer(readerPtr)))
	if !ok {
		setLast(key, fmt.Errorf("invalid reader handle"))
		return nil
	}
	return toCString(reader.JSON())
}

// c2pa_reader_resource_to_stream writes the resource stored under uri to
// the given stream. Returns the byte count written, or -1 on failure.
//
//export c2pa_reader_resource_to_stream
func c2pa_reader_resource_to_stream(readerPtr *C.C2paReader, uri *C.char, stream *C.C2paStream) C.int64_t {
	key := threadKey()
	if readerPtr == nil {
		setLast(key, ffi.NullParameterError("reader_ptr"))
		return -1
	}
	uriStr, ok := requireString(key, uri, "uri")
	if !ok {
		return -1
	}
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return -1
	}
	reader, ok := readers.Borrow(pointerHandle(unsafe.Pointer(readerPtr)))
	if !ok {
		setLast(key, fmt.Errorf("invalid reader handle"))
		return -1
	}
	n, err := reader.ResourceToStream(uriStr, s)
	if err != nil {
		setLast(key, err)
		return -1
	}
	return C.int64_t(n)
}

// c2pa_builder_from_json creates a builder from a JSON manifest
// definition. Returns NULL on failure. The returned value MUST be
// released by calling c2pa_builder_free.
//
//export c2pa_builder_from_json
func c2pa_builder_from_json(manifestJSON *C.char) *C.C2paBuilder {
	key := threadKey()
	manifestStr, ok := requireString(key, manifestJSON, "manifest_json")
	if !ok {
		return nil
	}
	builder, err := c2pa.BuilderFromJSON(manifestStr)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paBuilder)(handlePointer(builders.Put(builder)))
}

// c2pa_builder_from_archive recreates a builder from an archive stream.
// Returns NULL on failure. The returned value MUST be released by
// calling c2pa_builder_free.
//
//export c2pa_builder_from_archive
func c2pa_builder_from_archive(stream *C.C2paStream) *C.C2paBuilder {
	key := threadKey()
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return nil
	}
	builder, err := c2pa.BuilderFromArchive(s)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paBuilder)(handlePointer(builders.Put(builder)))
}

// c2pa_builder_free frees a builder. Can only be called once; the handle
// is invalid afterwards.
//
//export c2pa_builder_free
func c2pa_builder_free(builderPtr *C.C2paBuilder) {
	if builderPtr != nil {
		builders.Free(pointerHandle(unsafe.Pointer(builderPtr)))
	}
}

func takeBuilder(key uintptr, builderPtr *C.C2paBuilder) (*c2pa.Builder, ffi.Handle, bool) {
	if builderPtr == nil {
		setLast(key, ffi.NullParameterError("builder_ptr"))
		return nil, 0, false
	}
	h := pointerHandle(unsafe.Pointer(builderPtr))
	builder, ok := builders.Take(h)
	if !ok {
		setLast(key, fmt.Errorf("invalid builder handle"))
		return nil, 0, false
	}
	return builder, h, true
}

// c2pa_builder_set_no_embed leaves the signed output asset without an
// embedded manifest; use with c2pa_builder_set_remote_url for remotely
// hosted manifests.
//
//export c2pa_builder_set_no_embed
func c2pa_builder_set_no_embed(builderPtr *C.C2paBuilder) {
	key := threadKey()
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return
	}
	builder.SetNoEmbed()
	builders.Restore(h, builder)
}

// c2pa_builder_set_remote_url sets the URL readers should fetch the
// manifest from. Returns 0 on success, -1 on failure.
//
//export c2pa_builder_set_remote_url
func c2pa_builder_set_remote_url(builderPtr *C.C2paBuilder, remoteURL *C.char) C.int {
	key := threadKey()
	urlStr, ok := requireString(key, remoteURL, "remote_url")
	if !ok {
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	builder.SetRemoteURL(urlStr)
	builders.Restore(h, builder)
	return 0
}

// c2pa_builder_add_resource attaches resource bytes read from stream
// under uri. Returns 0 on success, -1 on failure; the builder stays
// valid either way.
//
//export c2pa_builder_add_resource
func c2pa_builder_add_resource(builderPtr *C.C2paBuilder, uri *C.char, stream *C.C2paStream) C.int {
	key := threadKey()
	uriStr, ok := requireString(key, uri, "uri")
	if !ok {
		return -1
	}
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	err := builder.AddResource(uriStr, s)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	return 0
}

// c2pa_builder_add_ingredient_from_stream adds an ingredient described
// by ingredient_json, hashing the source stream. Returns 0 on success,
// -1 on failure.
//
//export c2pa_builder_add_ingredient_from_stream
func c2pa_builder_add_ingredient_from_stream(builderPtr *C.C2paBuilder, ingredientJSON *C.char, format *C.char, source *C.C2paStream) C.int {
	key := threadKey()
	ingredientStr, ok := requireString(key, ingredientJSON, "ingredient_json")
	if !ok {
		return -1
	}
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	s, ok := borrowStream(key, source, "source")
	if !ok {
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	err := builder.AddIngredientFromStream(ingredientStr, formatStr, s)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	return 0
}

// c2pa_builder_to_archive writes the builder state to a writable stream.
// Returns 0 on success, -1 on failure.
//
//export c2pa_builder_to_archive
func c2pa_builder_to_archive(builderPtr *C.C2paBuilder, stream *C.C2paStream) C.int {
	key := threadKey()
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	err := builder.ToArchive(s)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	return 0
}

// c2pa_builder_sign signs the source stream and writes the output asset
// to dest. Returns the manifest store byte count, or -1 on failure. If
// manifest_bytes_ptr is not NULL it receives the manifest store bytes,
// which MUST be released by calling c2pa_manifest_bytes_free. The
// builder stays valid after signing and may be reused.
//
//export c2pa_builder_sign
func c2pa_builder_sign(builderPtr *C.C2paBuilder, format *C.char, source *C.C2paStream, dest *C.C2paStream, signer *C.C2paSigner, manifestBytesPtr **C.uchar) C.int64_t {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	src, ok := borrowStream(key, source, "source")
	if !ok {
		return -1
	}
	dst, ok := borrowStream(key, dest, "dest")
	if !ok {
		return -1
	}
	if signer == nil {
		setLast(key, ffi.NullParameterError("signer"))
		return -1
	}
	sgn, ok := signers.Borrow(pointerHandle(unsafe.Pointer(signer)))
	if !ok {
		setLast(key, fmt.Errorf("invalid signer handle"))
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	manifestBytes, err := builder.Sign(sgn, formatStr, src, dst)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	if manifestBytesPtr != nil {
		*manifestBytesPtr = (*C.uchar)(C.CBytes(manifestBytes))
	}
	return C.int64_t(len(manifestBytes))
}

// c2pa_builder_data_hashed_placeholder returns embeddable manifest bytes
// with a zero-filled signature placeholder of reserve_size bytes.
// Returns the byte count, or -1 on failure. The bytes MUST be released
// by calling c2pa_manifest_bytes_free.
//
//export c2pa_builder_data_hashed_placeholder
func c2pa_builder_data_hashed_placeholder(builderPtr *C.C2paBuilder, reserveSize C.size_t, format *C.char, manifestBytesPtr **C.uchar) C.int64_t {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	if manifestBytesPtr == nil {
		setLast(key, ffi.NullParameterError("manifest_bytes_ptr"))
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	bs, err := builder.DataHashedPlaceholder(int(reserveSize), formatStr)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	*manifestBytesPtr = (*C.uchar)(C.CBytes(bs))
	return C.int64_t(len(bs))
}

// c2pa_builder_sign_data_hashed_embeddable signs a manifest carrying the
// caller-computed data-hash assertion and returns it in embeddable form.
// Returns the byte count, or -1 on failure. The bytes MUST be released
// by calling c2pa_manifest_bytes_free.
//
//export c2pa_builder_sign_data_hashed_embeddable
func c2pa_builder_sign_data_hashed_embeddable(builderPtr *C.C2paBuilder, signer *C.C2paSigner, dataHash *C.char, format *C.char, manifestBytesPtr **C.uchar) C.int64_t {
	key := threadKey()
	dataHashStr, ok := requireString(key, dataHash, "data_hash")
	if !ok {
		return -1
	}
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	if manifestBytesPtr == nil {
		setLast(key, ffi.NullParameterError("manifest_bytes_ptr"))
		return -1
	}
	if signer == nil {
		setLast(key, ffi.NullParameterError("signer"))
		return -1
	}
	sgn, ok := signers.Borrow(pointerHandle(unsafe.Pointer(signer)))
	if !ok {
		setLast(key, fmt.Errorf("invalid signer handle"))
		return -1
	}
	builder, h, ok := takeBuilder(key, builderPtr)
	if !ok {
		return -1
	}
	bs, err := builder.SignDataHashedEmbeddable(sgn, dataHashStr, formatStr)
	builders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	*manifestBytesPtr = (*C.uchar)(C.CBytes(bs))
	return C.int64_t(len(bs))
}

// c2pa_format_embeddable converts raw manifest store bytes into the
// embeddable form for the given format. Returns the byte count, or -1
// on failure. The bytes MUST be released by calling
// c2pa_manifest_bytes_free.
//
//export c2pa_format_embeddable
func c2pa_format_embeddable(format *C.char, bytesPtr *C.uchar, bytesLen C.size_t, resultPtr **C.uchar) C.int64_t {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	if bytesPtr == nil {
		setLast(key, ffi.NullParameterError("bytes_ptr"))
		return -1
	}
	if resultPtr == nil {
		setLast(key, ffi.NullParameterError("result_ptr"))
		return -1
	}
	bs, err := c2pa.FormatEmbeddable(formatStr, C.GoBytes(unsafe.Pointer(bytesPtr), C.int(bytesLen)))
	if err != nil {
		setLast(key, err)
		return -1
	}
	*resultPtr = (*C.uchar)(C.CBytes(bs))
	return C.int64_t(len(bs))
}

// c2pa_manifest_bytes_free frees manifest bytes returned by the sign and
// embeddable operations. Can only be called once per buffer.
//
//export c2pa_manifest_bytes_free
func c2pa_manifest_bytes_free(manifestBytesPtr *C.uchar) {
	if manifestBytesPtr != nil {
		C.free(unsafe.Pointer(manifestBytesPtr))
	}
}

// c2pa_signer_create builds a signer from a callback plus static
// configuration; context is passed through to the callback on every
// call. Returns NULL on failure. The returned value MUST be released by
// calling c2pa_signer_free.
//
//export c2pa_signer_create
func c2pa_signer_create(context unsafe.Pointer, callback C.C2paSignerCallback, alg C.C2paSigningAlg, certs *C.char, tsaURL *C.char) *C.C2paSigner {
	key := threadKey()
	if callback == nil {
		setLast(key, ffi.NullParameterError("callback"))
		return nil
	}
	certsStr, ok := requireString(key, certs, "certs")
	if !ok {
		return nil
	}
	algName, err := signingAlgName(alg)
	if err != nil {
		setLast(key, err)
		return nil
	}
	algorithm, err := c2pa.GetSigningAlgorithm(algName)
	if err != nil {
		setLast(key, err)
		return nil
	}
	signer, err := ffi.NewCallbackSigner(newSignerSignFunc(context, callback), algorithm, []byte(certsStr), optionalString(tsaURL))
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paSigner)(handlePointer(signers.Put(signer)))
}

// c2pa_create_signer builds a configurable signer from a callback and a
// configuration record. Returns NULL on failure. The returned value
// MUST be released by calling c2pa_signer_free.
//
//export c2pa_create_signer
func c2pa_create_signer(callback C.C2paSignCallback, config *C.C2paSignerConfig) *C.C2paSigner {
	key := threadKey()
	if callback == nil {
		setLast(key, ffi.NullParameterError("callback"))
		return nil
	}
	if config == nil {
		setLast(key, ffi.NullParameterError("config"))
		return nil
	}
	algStr, ok := requireString(key, config.alg, "config.alg")
	if !ok {
		return nil
	}
	certsStr, ok := requireString(key, config.certs, "config.certs")
	if !ok {
		return nil
	}
	signer := ffi.NewConfiguredSigner(newConfiguredSignFunc(callback))
	err := signer.Configure(&c2pa.SignerConfig{
		Alg:              algStr,
		Certs:            []byte(certsStr),
		TimeAuthorityURL: optionalString(config.time_authority_url),
		UseOCSP:          bool(config.use_ocsp),
	})
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paSigner)(handlePointer(signers.Put(signer)))
}

// c2pa_signer_from_info builds an in-process signer from PEM key
// material. Returns NULL on failure. The returned value MUST be
// released by calling c2pa_signer_free.
//
//export c2pa_signer_from_info
func c2pa_signer_from_info(signerInfo *C.C2paSignerInfo) *C.C2paSigner {
	key := threadKey()
	if signerInfo == nil {
		setLast(key, ffi.NullParameterError("signer_info"))
		return nil
	}
	algStr, ok := requireString(key, signerInfo.alg, "signer_info.alg")
	if !ok {
		return nil
	}
	certStr, ok := requireString(key, signerInfo.sign_cert, "signer_info.sign_cert")
	if !ok {
		return nil
	}
	keyStr, ok := requireString(key, signerInfo.private_key, "signer_info.private_key")
	if !ok {
		return nil
	}
	signer, err := c2pa.NewLocalSigner([]byte(certStr), []byte(keyStr), algStr, optionalString(signerInfo.ta_url))
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paSigner)(handlePointer(signers.Put(signer)))
}

// c2pa_signer_reserve_size returns the signer's reserve size, or -1 on
// failure.
//
//export c2pa_signer_reserve_size
func c2pa_signer_reserve_size(signerPtr *C.C2paSigner) C.int64_t {
	key := threadKey()
	if signerPtr == nil {
		setLast(key, ffi.NullParameterError("signer_ptr"))
		return -1
	}
	signer, ok := signers.Borrow(pointerHandle(unsafe.Pointer(signerPtr)))
	if !ok {
		setLast(key, fmt.Errorf("invalid signer handle"))
		return -1
	}
	return C.int64_t(signer.ReserveSize())
}

// c2pa_signer_free frees a signer. Can only be called once; the handle
// is invalid afterwards.
//
//export c2pa_signer_free
func c2pa_signer_free(signerPtr *C.C2paSigner) {
	if signerPtr != nil {
		signers.Free(pointerHandle(unsafe.Pointer(signerPtr)))
	}
}

// c2pa_manifest_store_from_stream parses and validates the manifest
// store from an asset stream. Returns NULL on failure. The returned
// value MUST be released by calling c2pa_manifest_store_free.
//
//export c2pa_manifest_store_from_stream
func c2pa_manifest_store_from_stream(format *C.char, stream *C.C2paStream) *C.C2paManifestStore {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return nil
	}
	s, ok := borrowStream(key, stream, "stream")
	if !ok {
		return nil
	}
	reader, err := c2pa.FromStream(formatStr, s)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paManifestStore)(handlePointer(stores.Put(reader.Store())))
}

// c2pa_manifest_store_json returns the manifest store JSON. Returns NULL
// on failure. The returned value MUST be released by calling
// c2pa_string_free.
//
//export c2pa_manifest_store_json
func c2pa_manifest_store_json(storePtr *C.C2paManifestStore) *C.char {
	key := threadKey()
	if storePtr == nil {
		setLast(key, ffi.NullParameterError("store_ptr"))
		return nil
	}
	store, ok := stores.Borrow(pointerHandle(unsafe.Pointer(storePtr)))
	if !ok {
		setLast(key, fmt.Errorf("invalid manifest store handle"))
		return nil
	}
	return toCString(store.JSON())
}

// c2pa_manifest_store_free frees a manifest store. Can only be called
// once; the handle is invalid afterwards.
//
//export c2pa_manifest_store_free
func c2pa_manifest_store_free(storePtr *C.C2paManifestStore) {
	if storePtr != nil {
		stores.Free(pointerHandle(unsafe.Pointer(storePtr)))
	}
}

// c2pa_manifest_store_builder_from_json creates a manifest store builder
// from a JSON manifest definition. Kept for api compatibility; new code
// should use c2pa_builder_from_json. Returns NULL on failure. The
// returned value MUST be released by calling
// c2pa_manifest_store_builder_free.
//
//export c2pa_manifest_store_builder_from_json
func c2pa_manifest_store_builder_from_json(manifestJSON *C.char) *C.C2paManifestStoreBuilder {
	key := threadKey()
	manifestStr, ok := requireString(key, manifestJSON, "manifest_json")
	if !ok {
		return nil
	}
	builder, err := c2pa.BuilderFromJSON(manifestStr)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.C2paManifestStoreBuilder)(handlePointer(storeBuilders.Put(builder)))
}

// c2pa_manifest_store_builder_sign signs the source stream and writes
// the output asset to dest. Returns the manifest store byte count, or
// -1 on failure. The builder stays valid after signing.
//
//export c2pa_manifest_store_builder_sign
func c2pa_manifest_store_builder_sign(builderPtr *C.C2paManifestStoreBuilder, signer *C.C2paSigner, format *C.char, source *C.C2paStream, dest *C.C2paStream) C.int64_t {
	key := threadKey()
	formatStr, ok := requireString(key, format, "format")
	if !ok {
		return -1
	}
	src, ok := borrowStream(key, source, "source")
	if !ok {
		return -1
	}
	dst, ok := borrowStream(key, dest, "dest")
	if !ok {
		return -1
	}
	if signer == nil {
		setLast(key, ffi.NullParameterError("signer"))
		return -1
	}
	sgn, ok := signers.Borrow(pointerHandle(unsafe.Pointer(signer)))
	if !ok {
		setLast(key, fmt.Errorf("invalid signer handle"))
		return -1
	}
	if builderPtr == nil {
		setLast(key, ffi.NullParameterError("builder_ptr"))
		return -1
	}
	h := pointerHandle(unsafe.Pointer(builderPtr))
	builder, ok := storeBuilders.Take(h)
	if !ok {
		setLast(key, fmt.Errorf("invalid manifest store builder handle"))
		return -1
	}
	manifestBytes, err := builder.Sign(sgn, formatStr, src, dst)
	storeBuilders.Restore(h, builder)
	if err != nil {
		setLast(key, err)
		return -1
	}
	return C.int64_t(len(manifestBytes))
}

// c2pa_manifest_store_builder_free frees a manifest store builder. Can
// only be called once; the handle is invalid afterwards.
//
//export c2pa_manifest_store_builder_free
func c2pa_manifest_store_builder_free(builderPtr *C.C2paManifestStoreBuilder) {
	if builderPtr != nil {
		storeBuilders.Free(pointerHandle(unsafe.Pointer(builderPtr)))
	}
}

// c2pa_ed25519_sign signs bytes with a PEM ed25519 private key and
// returns the 64-byte signature, or NULL on failure. The returned value
// MUST be released by calling c2pa_signature_free.
//
//export c2pa_ed25519_sign
func c2pa_ed25519_sign(data *C.uchar, dataLen C.size_t, privateKey *C.char) *C.uchar {
	key := threadKey()
	if data == nil {
		setLast(key, ffi.NullParameterError("bytes"))
		return nil
	}
	keyStr, ok := requireString(key, privateKey, "private_key")
	if !ok {
		return nil
	}
	alg, err := c2pa.GetSigningAlgorithm(string(c2pa.ED25519))
	if err != nil {
		setLast(key, err)
		return nil
	}
	signer, err := c2pa.ParseSigningKey([]byte(keyStr))
	if err != nil {
		setLast(key, err)
		return nil
	}
	digest, opts, err := alg.Digest(C.GoBytes(unsafe.Pointer(data), C.int(dataLen)))
	if err != nil {
		setLast(key, err)
		return nil
	}
	sig, err := signer.Sign(rand.Reader, digest, opts)
	if err != nil {
		setLast(key, err)
		return nil
	}
	return (*C.uchar)(C.CBytes(sig))
}

// c2pa_signature_free frees a signature returned by c2pa_ed25519_sign.
// Can only be called once per buffer.
//
//export c2pa_signature_free
func c2pa_signature_free(signaturePtr *C.uchar) {
	if signaturePtr != nil {
		C.free(unsafe.Pointer(signaturePtr))
	}
}
