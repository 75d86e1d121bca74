package c2pa

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1"
	"github.com/stretchr/testify/require"
)

func TestParseSigningKeyPKCS8(t *testing.T) {
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	for name, key := range map[string]any{
		"ed25519": edKey,
		"ecdsa":   ecKey,
		"rsa":     rsaKey,
	} {
		t.Run(name, func(t *testing.T) {
			der, err := x509.MarshalPKCS8PrivateKey(key)
			require.NoError(t, err)
			pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

			parsed, err := ParseSigningKey(pemBytes)
			require.NoError(t, err)
			require.NotNil(t, parsed)
		})
	}
}

func TestParseSigningKeySEC1(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	parsed, err := ParseSigningKey(pemBytes)
	require.NoError(t, err)
	require.IsType(t, &ecdsa.PrivateKey{}, parsed)
}

func TestParseSigningKeyPKCS1(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(rsaKey)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})

	parsed, err := ParseSigningKey(pemBytes)
	require.NoError(t, err)
	require.IsType(t, &rsa.PrivateKey{}, parsed)
}

// TestParseSigningKeyES256K builds the PKCS#8 wrapping for a secp256k1
// key by hand, since the standard library refuses the curve entirely.
func TestParseSigningKeyES256K(t *testing.T) {
	k1, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	curveDER, err := asn1.Marshal(ecPrivateKey{
		Version:    1,
		PrivateKey: k1.Serialize(),
	})
	require.NoError(t, err)
	paramsDER, err := asn1.Marshal(OID_SECP256K1)
	require.NoError(t, err)
	der, err := asn1.Marshal(pkcs8{
		Version: 0,
		Algo: pkix.AlgorithmIdentifier{
			Algorithm:  OID_EC,
			Parameters: asn1.RawValue{FullBytes: paramsDER},
		},
		PrivateKey: curveDER,
	})
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	parsed, err := ParseSigningKey(pemBytes)
	require.NoError(t, err)

	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	require.True(t, ok)
	require.Equal(t, k1.ToECDSA().D, ecKey.D)

	alg, err := GetSigningAlgorithm("es256k")
	require.NoError(t, err)
	data := []byte("es256k payload")
	digest, opts, err := alg.Digest(data)
	require.NoError(t, err)
	sig, err := parsed.Sign(rand.Reader, digest, opts)
	require.NoError(t, err)
	require.NoError(t, alg.Verify(parsed.Public(), data, sig))
}

func TestParseSigningKeyErrors(t *testing.T) {
	_, err := ParseSigningKey([]byte("not pem at all"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse PEM block")

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x30, 0x00}})
	_, err = ParseSigningKey(pemBytes)
	require.Error(t, err)
}

func TestParseCertificates(t *testing.T) {
	certPEM1, _ := makeKeyPair(t, "es256")
	certPEM2, _ := makeKeyPair(t, "ed25519")

	chain := append(append([]byte{}, certPEM1...), certPEM2...)
	ders, err := ParseCertificates(chain)
	require.NoError(t, err)
	require.Len(t, ders, 2)
	for _, der := range ders {
		_, err := x509.ParseCertificate(der)
		require.NoError(t, err)
	}

	// Non-certificate blocks are skipped.
	_, keyPEM := makeKeyPair(t, "es256")
	mixed := append(append([]byte{}, keyPEM...), certPEM1...)
	ders, err = ParseCertificates(mixed)
	require.NoError(t, err)
	require.Len(t, ders, 1)

	_, err = ParseCertificates([]byte("no certs here"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no certificates found")

	_, err = ParseCertificates(keyPEM)
	require.Error(t, err)
}
