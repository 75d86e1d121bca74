package ffi

import (
	"errors"
	"fmt"
	"sync"

	"git.stream.place/streamplace/c2pa-ffi/pkg/c2pa"
)

// ErrSignatureCallback is the single error every failing signing
// callback maps to; the callback contract cannot report why it failed,
// only that it did.
var ErrSignatureCallback = errors.New("signature callback failed")

// SignFunc invokes the foreign signing callback: it writes the signature
// for data into sig and returns its length, or a negative value on
// failure.
type SignFunc func(data []byte, sig []byte) int

// reserveHeadroom pads the certificate chain length when estimating the
// space a signature record may need. Placeholder pending real timestamp
// authority response sizing.
const reserveHeadroom = 20000

// CallbackSigner is the stateless signer shape: fully configured at
// construction, with the foreign context bound into sign by the caller.
// The signature buffer is sized at twice the input length, a heuristic
// upper bound since the callback's algorithm output size is unknown here.
type CallbackSigner struct {
	sign     SignFunc
	alg      *c2pa.SigningAlgorithm
	certs    [][]byte
	certsLen int
	taURL    string
}

// NewCallbackSigner builds a CallbackSigner from a signing callback, an
// algorithm, a PEM certificate chain, and an optional timestamp
// authority URL.
func NewCallbackSigner(sign SignFunc, alg *c2pa.SigningAlgorithm, certsPEM []byte, taURL string) (*CallbackSigner, error) {
	certs, err := c2pa.ParseCertificates(certsPEM)
	if err != nil {
		return nil, err
	}
	return &CallbackSigner{
		sign:     sign,
		alg:      alg,
		certs:    certs,
		certsLen: len(certsPEM),
		taURL:    taURL,
	}, nil
}

func (s *CallbackSigner) Sign(data []byte) ([]byte, error) {
	buf := make([]byte, 2*len(data))
	n := s.sign(data, buf)
	if n < 0 {
		return nil, ErrSignatureCallback
	}
	if n > len(buf) {
		return nil, fmt.Errorf("signature callback returned %d bytes for a %d byte buffer", n, len(buf))
	}
	return buf[:n], nil
}

func (s *CallbackSigner) Alg() *c2pa.SigningAlgorithm { return s.alg }
func (s *CallbackSigner) Certs() [][]byte             { return s.certs }
func (s *CallbackSigner) ReserveSize() int            { return s.certsLen + reserveHeadroom }
func (s *CallbackSigner) TimeAuthorityURL() string    { return s.taURL }
func (s *CallbackSigner) OCSPVal() []byte             { return nil }

// configuredSigBufferSize is the fixed signature buffer handed to the
// configured-signer callback; producing more is a contract violation.
const configuredSigBufferSize = 100000

// ConfiguredSigner is the stateful signer shape: constructed empty
// around a callback, then configured. Configuration is written once
// under the write lock and read concurrently during signing.
type ConfiguredSigner struct {
	sign SignFunc

	mu      sync.RWMutex
	alg     *c2pa.SigningAlgorithm
	certs   [][]byte
	reserve int
	taURL   string
	useOCSP bool
	ocsp    []byte
}

// NewConfiguredSigner wraps a signing callback; Configure must be called
// before the signer is used.
func NewConfiguredSigner(sign SignFunc) *ConfiguredSigner {
	alg, _ := c2pa.GetSigningAlgorithm(string(c2pa.PS256))
	return &ConfiguredSigner{
		sign:    sign,
		alg:     alg,
		reserve: 1024,
	}
}

// Configure applies cfg under the write lock. The algorithm name is
// case-insensitive; the certificate chain is parsed into DER entries.
func (s *ConfiguredSigner) Configure(cfg *c2pa.SignerConfig) error {
	alg, err := c2pa.GetSigningAlgorithm(cfg.Alg)
	if err != nil {
		return err
	}
	certs, err := c2pa.ParseCertificates(cfg.Certs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alg = alg
	s.certs = certs
	s.reserve = len(cfg.Certs) + reserveHeadroom
	s.taURL = cfg.TimeAuthorityURL
	s.useOCSP = cfg.UseOCSP
	s.ocsp = nil
	return nil
}

func (s *ConfiguredSigner) Sign(data []byte) ([]byte, error) {
	buf := make([]byte, configuredSigBufferSize)
	n := s.sign(data, buf)
	if n < 0 {
		return nil, ErrSignatureCallback
	}
	if n > len(buf) {
		return nil, fmt.Errorf("signature callback returned %d bytes for a %d byte buffer", n, len(buf))
	}
	return buf[:n], nil
}

func (s *ConfiguredSigner) Alg() *c2pa.SigningAlgorithm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alg
}

func (s *ConfiguredSigner) Certs() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.certs
}

func (s *ConfiguredSigner) ReserveSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reserve
}

func (s *ConfiguredSigner) TimeAuthorityURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taURL
}

func (s *ConfiguredSigner) OCSPVal() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ocsp
}

var (
	_ c2pa.Signer = (*CallbackSigner)(nil)
	_ c2pa.Signer = (*ConfiguredSigner)(nil)
)
