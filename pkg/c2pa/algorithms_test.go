package c2pa

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1"
	"github.com/stretchr/testify/require"
)

func TestGetSigningAlgorithm(t *testing.T) {
	alg, err := GetSigningAlgorithm("ES256")
	require.NoError(t, err)
	require.Equal(t, ES256, alg.Name)
	require.Equal(t, crypto.SHA256, alg.Hash)

	alg, err = GetSigningAlgorithm("ed25519")
	require.NoError(t, err)
	require.Equal(t, ED25519, alg.Name)
	require.Equal(t, crypto.Hash(0), alg.Hash)

	_, err = GetSigningAlgorithm("rot13")
	require.Error(t, err)
	require.Contains(t, err.Error(), "algorithm not found")
}

func TestDigestSignVerify(t *testing.T) {
	keys := map[string]crypto.Signer{}

	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keys["ed25519"] = edPriv

	for name, curve := range map[string]elliptic.Curve{
		"es256": elliptic.P256(),
		"es384": elliptic.P384(),
		"es512": elliptic.P521(),
	} {
		key, err := ecdsa.GenerateKey(curve, rand.Reader)
		require.NoError(t, err)
		keys[name] = key
	}

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys["ps256"] = rsaKey
	keys["ps384"] = rsaKey
	keys["ps512"] = rsaKey

	k1Key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	keys["es256k"] = k1Key.ToECDSA()

	data := []byte("bytes under signature")
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			alg, err := GetSigningAlgorithm(name)
			require.NoError(t, err)

			digest, opts, err := alg.Digest(data)
			require.NoError(t, err)
			sig, err := key.Sign(rand.Reader, digest, opts)
			require.NoError(t, err)

			require.NoError(t, alg.Verify(key.Public(), data, sig))
			require.Error(t, alg.Verify(key.Public(), append(data, 'x'), sig))
		})
	}
}
