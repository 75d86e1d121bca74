package c2pa

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// signedJPEG signs a synthetic JPEG and returns the asset plus the
// manifest store bytes.
func signedJPEG(t *testing.T, b *Builder) ([]byte, []byte) {
	t.Helper()
	certPEM, keyPEM := makeKeyPair(t, "ed25519")
	signer, err := NewLocalSigner(certPEM, keyPEM, "ed25519", "")
	require.NoError(t, err)

	var dst bytes.Buffer
	manifestBytes, err := b.Sign(signer, "image/jpeg", bytes.NewReader(makeJPEG(t)), &dst)
	require.NoError(t, err)
	return dst.Bytes(), manifestBytes
}

func TestRemoteManifestFetch(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)

	var manifestBytes []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(manifestBytes)
	}))
	defer srv.Close()

	b.SetNoEmbed()
	b.SetRemoteURL(srv.URL)
	asset, mb := signedJPEG(t, b)
	manifestBytes = mb

	reader, err := FromStream("image/jpeg", bytes.NewReader(asset))
	require.NoError(t, err)
	require.Empty(t, reader.Store().ValidationStatus)
	require.Equal(t, "Image File", reader.GetActiveManifest().Title)
}

func TestRemoteManifestFetchDisabled(t *testing.T) {
	require.NoError(t, LoadSettings(`{"verify": {"remote_manifest_fetch": false}}`, "json"))
	defer func() {
		require.NoError(t, LoadSettings(`{}`, "json"))
	}()

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	b.SetNoEmbed()
	b.SetRemoteURL("http://manifests.example/1")
	asset, _ := signedJPEG(t, b)

	_, err = FromStream("image/jpeg", bytes.NewReader(asset))
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote manifest fetch disabled for http://manifests.example/1")
}

func TestRemoteManifestFetchUnreachable(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	b.SetNoEmbed()
	// port 1 refuses connections
	b.SetRemoteURL("http://127.0.0.1:1/manifest")
	asset, _ := signedJPEG(t, b)

	_, err = FromStream("image/jpeg", bytes.NewReader(asset))
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote manifest fetch failed for http://127.0.0.1:1/manifest")
}

func TestRemoteManifestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	b.SetNoEmbed()
	b.SetRemoteURL(srv.URL)
	asset, _ := signedJPEG(t, b)

	_, err = FromStream("image/jpeg", bytes.NewReader(asset))
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote manifest fetch failed")
	require.Contains(t, err.Error(), "404")
}

func TestValidationTamperedClaim(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	_, manifestBytes := signedJPEG(t, b)

	var c container
	require.NoError(t, json.Unmarshal(manifestBytes, &c))
	c.Store.Active().Title = "Forged Title"
	tampered, err := json.Marshal(&c)
	require.NoError(t, err)

	reader, err := FromStream("application/c2pa", bytes.NewReader(tampered))
	require.NoError(t, err)
	status := reader.Store().ValidationStatus
	require.Len(t, status, 1)
	require.Equal(t, "claimSignature.mismatch", status[0].Code)
}

func TestValidationMissingSignature(t *testing.T) {
	store := &ManifestStore{
		ActiveManifest: "urn:uuid:unsigned",
		Manifests: map[string]*Manifest{
			"urn:uuid:unsigned": {
				ClaimGenerator: "someone/1.0",
				Label:          "urn:uuid:unsigned",
				InstanceID:     "xmp:iid:unsigned",
				Assertions:     []Assertion{},
			},
		},
	}
	payload, err := json.Marshal(&container{Store: store})
	require.NoError(t, err)

	reader, err := FromStream("application/c2pa", bytes.NewReader(payload))
	require.NoError(t, err)
	status := reader.Store().ValidationStatus
	require.Len(t, status, 1)
	require.Equal(t, "claimSignature.missing", status[0].Code)
	require.Equal(t, "urn:uuid:unsigned", status[0].URL)
}

func TestValidationBadCredential(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	_, manifestBytes := signedJPEG(t, b)

	var c container
	require.NoError(t, json.Unmarshal(manifestBytes, &c))
	c.Store.Active().Signature.Certs = []string{"bm90IGEgY2VydA=="}
	broken, err := json.Marshal(&c)
	require.NoError(t, err)

	reader, err := FromStream("application/c2pa", bytes.NewReader(broken))
	require.NoError(t, err)
	status := reader.Store().ValidationStatus
	require.Len(t, status, 1)
	require.Equal(t, "signingCredential.invalid", status[0].Code)
}

func TestReaderJSONIncludesValidation(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	asset, _ := signedJPEG(t, b)

	reader, err := FromStream("image/jpeg", bytes.NewReader(asset))
	require.NoError(t, err)

	var store ManifestStore
	require.NoError(t, json.Unmarshal([]byte(reader.JSON()), &store))
	require.Equal(t, reader.Store().ActiveManifest, store.ActiveManifest)
	require.NotNil(t, store.ValidationStatus)
	require.Empty(t, store.ValidationStatus)
}

func TestLoadSettingsRejectsBadInput(t *testing.T) {
	require.Error(t, LoadSettings("verify: {}", "yaml"))
	require.Error(t, LoadSettings("{not json", "json"))

	// Failed loads leave the current settings in place.
	require.True(t, currentSettings().Verify.RemoteManifestFetch)
}
