package c2pa

// Signer is the signing capability the engine drives while embedding a
// manifest. Implementations decide where the actual cryptographic
// operation happens: in-process (LocalSigner) or behind a foreign
// callback (internal/ffi).
type Signer interface {
	// Sign returns a signature over data using the signer's algorithm.
	Sign(data []byte) ([]byte, error)

	// Alg returns the signing algorithm.
	Alg() *SigningAlgorithm

	// Certs returns the certificate chain as DER bytes, leaf first.
	Certs() [][]byte

	// ReserveSize returns an upper bound for the byte length of the
	// signature record. Signing fails if Sign produces more than this.
	ReserveSize() int

	// TimeAuthorityURL returns the RFC 3161 timestamp authority URL, or
	// "" when the signature is not timestamped.
	TimeAuthorityURL() string

	// OCSPVal returns a cached OCSP response for the signing cert, or nil.
	OCSPVal() []byte
}

// SignerConfig carries the configuration applied to a configurable signer.
type SignerConfig struct {
	// Alg is the signing algorithm name, case-insensitive.
	Alg string

	// Certs is the certificate chain as concatenated PEM.
	Certs []byte

	// TimeAuthorityURL is an optional RFC 3161 timestamp authority URL.
	TimeAuthorityURL string

	// UseOCSP requests fetching an OCSP response for the signing cert.
	UseOCSP bool
}
