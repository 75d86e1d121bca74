package c2pa

import (
	"crypto"
	"crypto/rand"
	"fmt"
)

// LocalSigner signs with an in-process crypto.Signer. It is the native
// Signer used by the whole-file operations and by tests; foreign-callback
// signers live in internal/ffi.
type LocalSigner struct {
	signer    crypto.Signer
	algorithm *SigningAlgorithm
	certs     [][]byte
	certsLen  int
	taURL     string
}

// NewLocalSigner builds a LocalSigner from a PEM certificate chain, a PEM
// private key, an algorithm name, and an optional timestamp authority URL.
func NewLocalSigner(certsPEM []byte, keyPEM []byte, algStr string, taURL string) (*LocalSigner, error) {
	alg, err := GetSigningAlgorithm(algStr)
	if err != nil {
		return nil, err
	}
	certs, err := ParseCertificates(certsPEM)
	if err != nil {
		return nil, err
	}
	key, err := ParseSigningKey(keyPEM)
	if err != nil {
		return nil, err
	}
	return &LocalSigner{
		signer:    key,
		algorithm: alg,
		certs:     certs,
		certsLen:  len(certsPEM),
		taURL:     taURL,
	}, nil
}

func (s *LocalSigner) Sign(data []byte) ([]byte, error) {
	digest, opts, err := s.algorithm.Digest(data)
	if err != nil {
		return nil, err
	}
	bs, err := s.signer.Sign(rand.Reader, digest, opts)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}
	return bs, nil
}

func (s *LocalSigner) Alg() *SigningAlgorithm {
	return s.algorithm
}

func (s *LocalSigner) Certs() [][]byte {
	return s.certs
}

// ReserveSize mirrors the configured-signer bound: the chain length plus
// headroom for the signature and timestamp countersignature.
func (s *LocalSigner) ReserveSize() int {
	return s.certsLen + 20000
}

func (s *LocalSigner) TimeAuthorityURL() string {
	return s.taURL
}

func (s *LocalSigner) OCSPVal() []byte {
	return nil
}
