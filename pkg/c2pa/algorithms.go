package c2pa

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"strings"
)

type SigningAlgorithmName string

const (
	ED25519 SigningAlgorithmName = "ed25519"
	ES256   SigningAlgorithmName = "es256"
	ES256K  SigningAlgorithmName = "es256k"
	ES384   SigningAlgorithmName = "es384"
	ES512   SigningAlgorithmName = "es512"
	PS256   SigningAlgorithmName = "ps256"
	PS384   SigningAlgorithmName = "ps384"
	PS512   SigningAlgorithmName = "ps512"
)

type SigningAlgorithm struct {
	Name SigningAlgorithmName
	Hash crypto.Hash
}

func GetSigningAlgorithm(algStr string) (*SigningAlgorithm, error) {
	alg := SigningAlgorithmName(strings.ToLower(algStr))
	switch alg {
	case ED25519:
		return &SigningAlgorithm{ED25519, crypto.Hash(0)}, nil
	case ES256:
		return &SigningAlgorithm{ES256, crypto.SHA256}, nil
	case ES256K:
		return &SigningAlgorithm{ES256K, crypto.SHA256}, nil
	case ES384:
		return &SigningAlgorithm{ES384, crypto.SHA384}, nil
	case ES512:
		return &SigningAlgorithm{ES512, crypto.SHA512}, nil
	case PS256:
		return &SigningAlgorithm{PS256, crypto.SHA256}, nil
	case PS384:
		return &SigningAlgorithm{PS384, crypto.SHA384}, nil
	case PS512:
		return &SigningAlgorithm{PS512, crypto.SHA512}, nil
	default:
		return nil, fmt.Errorf("algorithm not found: %s", alg)
	}
}

// get digest and crypto options for passing to the actual signer
func (alg *SigningAlgorithm) Digest(data []byte) ([]byte, crypto.SignerOpts, error) {
	switch alg.Name {
	case ED25519:
		// ed25519 handles its own hashing
		return data, alg.Hash, nil
	case ES256, ES256K, ES384, ES512:
		h := alg.Hash.New()
		h.Write(data)
		digest := h.Sum(nil)
		return digest, alg.Hash, nil
	case PS256, PS384, PS512:
		h := alg.Hash.New()
		h.Write(data)
		digest := h.Sum(nil)
		opts := &rsa.PSSOptions{
			Hash:       alg.Hash,
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		}
		return digest, opts, nil
	}
	return nil, nil, fmt.Errorf("unknown algorithm: %s", alg.Name)
}

// Verify checks sig over data against pub for this algorithm.
func (alg *SigningAlgorithm) Verify(pub crypto.PublicKey, data []byte, sig []byte) error {
	switch alg.Name {
	case ED25519:
		key, ok := pub.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("ed25519: unexpected public key type %T", pub)
		}
		if !ed25519.Verify(key, data, sig) {
			return fmt.Errorf("ed25519: signature mismatch")
		}
		return nil
	case ES256, ES256K, ES384, ES512:
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%s: unexpected public key type %T", alg.Name, pub)
		}
		digest, _, err := alg.Digest(data)
		if err != nil {
			return err
		}
		if !ecdsa.VerifyASN1(key, digest, sig) {
			return fmt.Errorf("%s: signature mismatch", alg.Name)
		}
		return nil
	case PS256, PS384, PS512:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%s: unexpected public key type %T", alg.Name, pub)
		}
		digest, opts, err := alg.Digest(data)
		if err != nil {
			return err
		}
		pssOpts, _ := opts.(*rsa.PSSOptions)
		if err := rsa.VerifyPSS(key, alg.Hash, digest, sig, pssOpts); err != nil {
			return fmt.Errorf("%s: %w", alg.Name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown algorithm: %s", alg.Name)
}
