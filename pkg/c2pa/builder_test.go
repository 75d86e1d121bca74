package c2pa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderArchiveRoundTrip(t *testing.T) {
	b, err := BuilderFromJSON(`{"title": "Archived", "assertions": []}`)
	require.NoError(t, err)
	require.NoError(t, b.AddResource("thumbnail.jpg", strings.NewReader("thumb bytes")))
	require.NoError(t, b.AddResource("icon.png", strings.NewReader("icon bytes")))
	b.SetRemoteURL("http://manifests.example/1")

	var archive bytes.Buffer
	require.NoError(t, b.ToArchive(&archive))

	b2, err := BuilderFromArchive(bytes.NewReader(archive.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "Archived", b2.def.Title)
	require.Equal(t, "http://manifests.example/1", b2.remoteURL)
	require.Equal(t, []byte("thumb bytes"), b2.resources["thumbnail.jpg"])
	require.Equal(t, []byte("icon bytes"), b2.resources["icon.png"])
}

func TestBuilderFromArchiveRejectsGarbage(t *testing.T) {
	_, err := BuilderFromArchive(strings.NewReader("not a zip"))
	require.Error(t, err)
}

func TestBuilderResources(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "ed25519")
	signer, err := NewLocalSigner(certPEM, keyPEM, "ed25519", "")
	require.NoError(t, err)

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	require.NoError(t, b.AddResource("self#jumbf=c2pa/thumbnail", strings.NewReader("thumb bytes")))

	var dst bytes.Buffer
	_, err = b.Sign(signer, "image/jpeg", bytes.NewReader(makeJPEG(t)), &dst)
	require.NoError(t, err)

	reader, err := FromStream("image/jpeg", bytes.NewReader(dst.Bytes()))
	require.NoError(t, err)
	require.Empty(t, reader.Store().ValidationStatus)

	var out bytes.Buffer
	n, err := reader.ResourceToStream("self#jumbf=c2pa/thumbnail", &out)
	require.NoError(t, err)
	require.EqualValues(t, len("thumb bytes"), n)
	require.Equal(t, "thumb bytes", out.String())

	_, err = reader.ResourceToStream("self#jumbf=c2pa/missing", &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "resource not found")
}

func TestBuilderAddResourceEmptyURI(t *testing.T) {
	b, err := BuilderFromJSON(`{"assertions": []}`)
	require.NoError(t, err)
	require.Error(t, b.AddResource("", strings.NewReader("x")))
}

func TestBuilderIngredient(t *testing.T) {
	b, err := BuilderFromJSON(`{"title": "Derived", "assertions": []}`)
	require.NoError(t, err)

	err = b.AddIngredientFromStream(`{"title": "Parent"}`, "image/jpeg", bytes.NewReader(makeJPEG(t)))
	require.NoError(t, err)

	require.Len(t, b.def.Ingredients, 1)
	ing := b.def.Ingredients[0]
	require.Equal(t, "Parent", ing.Title)
	require.Equal(t, "image/jpeg", ing.Format)
	require.Equal(t, "componentOf", ing.Relationship)
	require.Contains(t, ing.InstanceID, "xmp:iid:")
	require.Contains(t, ing.Hash, "sha256:")
}

func TestBuilderIngredientKeepsExplicitFields(t *testing.T) {
	b, err := BuilderFromJSON(`{"assertions": []}`)
	require.NoError(t, err)

	def := `{"title": "Parent", "relationship": "parentOf", "instance_id": "xmp:iid:fixed"}`
	err = b.AddIngredientFromStream(def, "image/png", bytes.NewReader(makePNG(t)))
	require.NoError(t, err)

	ing := b.def.Ingredients[0]
	require.Equal(t, "parentOf", ing.Relationship)
	require.Equal(t, "xmp:iid:fixed", ing.InstanceID)
}

func TestBuilderIngredientUnsupportedFormat(t *testing.T) {
	b, err := BuilderFromJSON(`{"assertions": []}`)
	require.NoError(t, err)
	err = b.AddIngredientFromStream(`{}`, "image/tiff", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBuilderNoEmbedStripsManifest(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "es256")
	signer, err := NewLocalSigner(certPEM, keyPEM, "es256", "")
	require.NoError(t, err)

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)
	b.SetNoEmbed()

	var dst bytes.Buffer
	manifestBytes, err := b.Sign(signer, "image/jpeg", bytes.NewReader(makeJPEG(t)), &dst)
	require.NoError(t, err)
	require.NotEmpty(t, manifestBytes)

	// The signed manifest store comes back to the caller, but the asset
	// itself carries nothing.
	_, err = FromStream("image/jpeg", bytes.NewReader(dst.Bytes()))
	require.ErrorIs(t, err, ErrManifestNotFound)
}

func TestDataHashedPlaceholder(t *testing.T) {
	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)

	bs, err := b.DataHashedPlaceholder(2048, "application/c2pa")
	require.NoError(t, err)

	var c container
	require.NoError(t, json.Unmarshal(bs, &c))
	require.NotNil(t, c.Store)
	m := c.Store.Active()
	require.NotNil(t, m)
	require.NotNil(t, m.Signature)

	sig, err := base64.StdEncoding.DecodeString(m.Signature.Sig)
	require.NoError(t, err)
	require.Len(t, sig, 2048)
	require.Equal(t, make([]byte, 2048), sig)

	_, err = b.DataHashedPlaceholder(0, "application/c2pa")
	require.Error(t, err)
}

func TestSignDataHashedEmbeddable(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "es256")
	signer, err := NewLocalSigner(certPEM, keyPEM, "es256", "")
	require.NoError(t, err)

	b, err := BuilderFromJSON(`{"title": "Hashed", "assertions": []}`)
	require.NoError(t, err)

	dataHash := `{"exclusions": [{"start": 20, "length": 1000}], "name": "jumbf manifest"}`
	bs, err := b.SignDataHashedEmbeddable(signer, dataHash, "application/c2pa")
	require.NoError(t, err)

	var c container
	require.NoError(t, json.Unmarshal(bs, &c))
	m := c.Store.Active()
	require.NotNil(t, m)
	require.Len(t, m.Assertions, 1)
	require.Equal(t, "c2pa.hash.data", m.Assertions[0].Label)
	require.NotNil(t, m.Signature)

	_, err = b.SignDataHashedEmbeddable(signer, "{not json", "application/c2pa")
	require.Error(t, err)
}

func TestSignDataHashedEmbeddableBuilderReuse(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "es256")
	signer, err := NewLocalSigner(certPEM, keyPEM, "es256", "")
	require.NoError(t, err)

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)

	dataHash := `{"exclusions": [{"start": 20, "length": 1000}], "name": "jumbf manifest"}`
	for i := 0; i < 2; i++ {
		bs, err := b.SignDataHashedEmbeddable(signer, dataHash, "application/c2pa")
		require.NoError(t, err)

		// each call carries exactly one data-hash assertion, never stacked
		var c container
		require.NoError(t, json.Unmarshal(bs, &c))
		m := c.Store.Active()
		labels := []string{}
		for _, a := range m.Assertions {
			labels = append(labels, a.Label)
		}
		require.Equal(t, []string{"c2pa.actions", "c2pa.hash.data"}, labels)
	}

	// a plain sign afterwards carries no data-hash assertion
	var dst bytes.Buffer
	_, err = b.Sign(signer, "image/jpeg", bytes.NewReader(makeJPEG(t)), &dst)
	require.NoError(t, err)
	reader, err := FromStream("image/jpeg", bytes.NewReader(dst.Bytes()))
	require.NoError(t, err)
	m := reader.GetActiveManifest()
	require.Len(t, m.Assertions, 1)
	require.Equal(t, "c2pa.actions", m.Assertions[0].Label)
}

func TestSignDataHashedEmbeddableFailureLeavesNoState(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "es256")
	signer, err := NewLocalSigner(certPEM, keyPEM, "es256", "")
	require.NoError(t, err)
	oversized := &oversizedSigner{LocalSigner: signer}

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)

	dataHash := `{"exclusions": []}`
	_, err = b.SignDataHashedEmbeddable(oversized, dataHash, "application/c2pa")
	require.Error(t, err)

	// the failed call must not leave the assertion behind
	require.Len(t, b.def.Assertions, 1)
	require.Equal(t, "c2pa.actions", b.def.Assertions[0].Label)
}

func TestFormatEmbeddable(t *testing.T) {
	payload := []byte(`{"manifest_store": null}`)

	// application/c2pa is the identity wrapping.
	bs, err := FormatEmbeddable("application/c2pa", payload)
	require.NoError(t, err)
	require.Equal(t, payload, bs)

	// JPEG wraps into APP11 segments.
	bs, err = FormatEmbeddable("image/jpeg", payload)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, jpegMarkerAPP11}, bs[:2])

	_, err = FormatEmbeddable("image/jpeg", nil)
	require.Error(t, err)

	_, err = FormatEmbeddable("image/tiff", payload)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSignatureExceedsReserve(t *testing.T) {
	certPEM, keyPEM := makeKeyPair(t, "es256")
	signer, err := NewLocalSigner(certPEM, keyPEM, "es256", "")
	require.NoError(t, err)
	oversized := &oversizedSigner{LocalSigner: signer}

	b, err := BuilderFromJSON(testManifestJSON)
	require.NoError(t, err)

	var dst bytes.Buffer
	_, err = b.Sign(oversized, "image/jpeg", bytes.NewReader(makeJPEG(t)), &dst)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds reserve size")
}

type oversizedSigner struct {
	*LocalSigner
}

func (s *oversizedSigner) ReserveSize() int { return 1 }
