// Package c2pa implements a compact content-provenance engine: signed
// manifests embedded into assets, read back out, and validated.
//
// The package is consumed two ways: directly from Go, or through the
// C-callable boundary in the capi package, which wraps these types in
// opaque handles for foreign callers.
package c2pa

import (
	"log/slog"
	"sync"
)

const (
	// Name identifies the engine in version strings and claim generators.
	Name = "c2pa-go-engine"

	// Version is the engine version reported by the boundary's version query.
	Version = "0.9.0"
)

var (
	loggerMu sync.RWMutex
	logger   = slog.New(slog.DiscardHandler)
)

// SetLogger installs a logger for engine diagnostics such as remote
// manifest fetches. The default discards everything.
func SetLogger(l *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger = l
}

func log() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SupportedFormats returns the mime types and extensions the engine can
// embed manifests into or extract manifests from.
func SupportedFormats() []string {
	return []string{
		"application/c2pa",
		"c2pa",
		"image/jpeg",
		"jpeg",
		"jpg",
		"image/png",
		"png",
	}
}
