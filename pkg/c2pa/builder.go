package c2pa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
)

// Builder assembles a manifest from a JSON definition plus attached
// resources and ingredients, then signs it into an asset.
//
// A Builder is not safe for concurrent use; the boundary layer serializes
// access per handle.
type Builder struct {
	def       ManifestDefinition
	resources map[string][]byte
	noEmbed   bool
	remoteURL string
}

// NewBuilder creates a Builder from a parsed manifest definition.
func NewBuilder(def *ManifestDefinition) *Builder {
	b := &Builder{
		def:       *def,
		resources: map[string][]byte{},
		remoteURL: def.RemoteURL,
	}
	return b
}

// BuilderFromJSON creates a Builder from a JSON manifest definition.
func BuilderFromJSON(manifestJSON string) (*Builder, error) {
	var def ManifestDefinition
	if err := json.Unmarshal([]byte(manifestJSON), &def); err != nil {
		return nil, fmt.Errorf("parsing manifest definition: %w", err)
	}
	return NewBuilder(&def), nil
}

// SetNoEmbed makes Sign leave the output asset without an embedded
// manifest store; combined with SetRemoteURL the asset carries only a
// reference to the remotely-hosted manifest.
func (b *Builder) SetNoEmbed() {
	b.noEmbed = true
}

// SetRemoteURL sets the URL readers should fetch the manifest from.
func (b *Builder) SetRemoteURL(url string) {
	b.remoteURL = url
}

// AddResource attaches resource bytes under a uri for use by assertions
// such as thumbnails. Replaces any prior resource with the same uri.
func (b *Builder) AddResource(uri string, r io.Reader) error {
	if uri == "" {
		return fmt.Errorf("resource uri must not be empty")
	}
	bs, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading resource %s: %w", uri, err)
	}
	b.resources[uri] = bs
	return nil
}

// AddIngredientFromStream parses an ingredient definition and fills in
// the hash and instance id from the ingredient's asset stream.
func (b *Builder) AddIngredientFromStream(ingredientJSON string, format string, r io.Reader) error {
	if _, err := formatFor(format); err != nil {
		return err
	}
	var ing Ingredient
	if err := json.Unmarshal([]byte(ingredientJSON), &ing); err != nil {
		return fmt.Errorf("parsing ingredient definition: %w", err)
	}
	dgst, err := digest.Canonical.FromReader(r)
	if err != nil {
		return fmt.Errorf("hashing ingredient: %w", err)
	}
	ing.Hash = dgst.String()
	if ing.Format == "" {
		ing.Format = format
	}
	if ing.InstanceID == "" {
		ing.InstanceID = newInstanceID()
	}
	if ing.Relationship == "" {
		ing.Relationship = "componentOf"
	}
	b.def.Ingredients = append(b.def.Ingredients, ing)
	return nil
}

// archive entry names; resource uris are mapped through an index file so
// arbitrary uri characters never reach zip entry names.
const (
	archiveManifestName  = "manifest.json"
	archiveResourceIndex = "resources.json"
)

// ToArchive writes the builder state to a zip archive so it can be
// reconstructed later with BuilderFromArchive.
func (b *Builder) ToArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	def := b.def
	def.RemoteURL = b.remoteURL
	defbs, err := json.Marshal(&def)
	if err != nil {
		return fmt.Errorf("encoding manifest definition: %w", err)
	}
	if err := writeZipEntry(zw, archiveManifestName, defbs); err != nil {
		return err
	}

	uris := make([]string, 0, len(b.resources))
	for uri := range b.resources {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	index := map[string]string{}
	for i, uri := range uris {
		name := fmt.Sprintf("resources/%d", i)
		index[uri] = name
		if err := writeZipEntry(zw, name, b.resources[uri]); err != nil {
			return err
		}
	}
	indexbs, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding resource index: %w", err)
	}
	if err := writeZipEntry(zw, archiveResourceIndex, indexbs); err != nil {
		return err
	}
	return zw.Close()
}

// BuilderFromArchive reconstructs a Builder from an archive stream
// written by ToArchive.
func BuilderFromArchive(r io.Reader) (*Builder, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(bs), int64(len(bs)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defbs, err := readZipEntry(zr, archiveManifestName)
	if err != nil {
		return nil, err
	}
	b, err := BuilderFromJSON(string(defbs))
	if err != nil {
		return nil, err
	}
	indexbs, err := readZipEntry(zr, archiveResourceIndex)
	if err != nil {
		return nil, err
	}
	var index map[string]string
	if err := json.Unmarshal(indexbs, &index); err != nil {
		return nil, fmt.Errorf("parsing resource index: %w", err)
	}
	for uri, name := range index {
		rbs, err := readZipEntry(zr, name)
		if err != nil {
			return nil, err
		}
		b.resources[uri] = rbs
	}
	return b, nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", name, err)
	}
	return nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing archive entry %s: %w", name, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Sign builds the manifest, signs it with signer, and writes source with
// the manifest embedded to dest. It returns the manifest store bytes
// regardless of embedding so callers can host them remotely.
//
// The Builder stays usable after Sign.
func (b *Builder) Sign(signer Signer, format string, source io.Reader, dest io.Writer) ([]byte, error) {
	fm, err := formatFor(format)
	if err != nil {
		return nil, err
	}
	store, err := b.buildSignedStore(signer, format)
	if err != nil {
		return nil, err
	}
	manifestBytes, err := json.Marshal(&container{Store: store})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest store: %w", err)
	}

	var payload []byte
	switch {
	case !b.noEmbed:
		payload = manifestBytes
	case b.remoteURL != "":
		payload, err = json.Marshal(&container{RemoteURL: b.remoteURL})
		if err != nil {
			return nil, fmt.Errorf("encoding remote reference: %w", err)
		}
	default:
		// no embed, no remote: strip any existing manifest
		payload = nil
	}
	if err := fm.embed(source, dest, payload); err != nil {
		return nil, err
	}
	return manifestBytes, nil
}

// SignFile signs sourcePath into destPath. The destination is removed on
// failure rather than left half-written.
func (b *Builder) SignFile(signer Signer, sourcePath string, destPath string) ([]byte, error) {
	_, mime, err := formatForPath(sourcePath)
	if err != nil {
		return nil, err
	}
	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst, err := os.Create(destPath)
	if err != nil {
		return nil, err
	}
	manifestBytes, err := b.Sign(signer, mime, src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}
	return manifestBytes, nil
}

// DataHashedPlaceholder returns embeddable manifest bytes whose signature
// is a zero-filled placeholder of reserveSize bytes, for callers that
// hash and sign asset ranges themselves.
func (b *Builder) DataHashedPlaceholder(reserveSize int, format string) ([]byte, error) {
	if reserveSize <= 0 {
		return nil, fmt.Errorf("reserve size must be positive")
	}
	fm, err := formatFor(format)
	if err != nil {
		return nil, err
	}
	m := b.buildManifest(format)
	m.Signature = &SignatureRecord{
		Alg:   string(PS256),
		Certs: []string{},
		Sig:   base64.StdEncoding.EncodeToString(make([]byte, reserveSize)),
	}
	store := &ManifestStore{
		ActiveManifest: m.Label,
		Manifests:      map[string]*Manifest{m.Label: m},
	}
	bs, err := json.Marshal(&container{Store: store})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest store: %w", err)
	}
	return fm.wrap(bs)
}

// SignDataHashedEmbeddable signs a manifest carrying the caller-computed
// data-hash assertion and returns it in embeddable form. The data hash
// is an argument of this call only; the builder's definition is left
// untouched so later signs do not carry it.
func (b *Builder) SignDataHashedEmbeddable(signer Signer, dataHashJSON string, format string) ([]byte, error) {
	fm, err := formatFor(format)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(dataHashJSON)) {
		return nil, fmt.Errorf("data hash is not valid JSON")
	}
	hashed := *b
	hashed.def.Assertions = append(append([]Assertion{}, b.def.Assertions...), Assertion{
		Label: "c2pa.hash.data",
		Data:  json.RawMessage(dataHashJSON),
	})
	store, err := hashed.buildSignedStore(signer, format)
	if err != nil {
		return nil, err
	}
	bs, err := json.Marshal(&container{Store: store})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest store: %w", err)
	}
	return fm.wrap(bs)
}

// FormatEmbeddable converts raw manifest store bytes into the embeddable
// form for the given format.
func FormatEmbeddable(format string, manifestBytes []byte) ([]byte, error) {
	fm, err := formatFor(format)
	if err != nil {
		return nil, err
	}
	if len(manifestBytes) == 0 {
		return nil, fmt.Errorf("manifest bytes must not be empty")
	}
	return fm.wrap(manifestBytes)
}

func (b *Builder) buildManifest(format string) *Manifest {
	def := b.def
	m := &Manifest{
		ClaimGenerator: def.ClaimGenerator,
		Title:          def.Title,
		Format:         def.Format,
		InstanceID:     def.InstanceID,
		Label:          def.Label,
		Assertions:     def.Assertions,
		Ingredients:    def.Ingredients,
	}
	if m.ClaimGenerator == "" {
		m.ClaimGenerator = Name + "/" + Version
	}
	if m.Format == "" {
		m.Format = format
	}
	if m.InstanceID == "" {
		m.InstanceID = newInstanceID()
	}
	if m.Label == "" {
		m.Label = newManifestLabel()
	}
	if m.Assertions == nil {
		m.Assertions = []Assertion{}
	}
	if len(b.resources) > 0 {
		m.Resources = make(map[string]string, len(b.resources))
		for uri, bs := range b.resources {
			m.Resources[uri] = base64.StdEncoding.EncodeToString(bs)
		}
	}
	return m
}

func (b *Builder) buildSignedStore(signer Signer, format string) (*ManifestStore, error) {
	m := b.buildManifest(format)
	claim, err := m.claimBytes()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(claim)
	if err != nil {
		return nil, fmt.Errorf("signing claim: %w", err)
	}
	if len(sig) > signer.ReserveSize() {
		return nil, fmt.Errorf("signature of %d bytes exceeds reserve size %d", len(sig), signer.ReserveSize())
	}
	certs := signer.Certs()
	if len(certs) == 0 {
		return nil, fmt.Errorf("signer has no certificate chain")
	}
	rec := &SignatureRecord{
		Alg:   string(signer.Alg().Name),
		Certs: make([]string, len(certs)),
		Sig:   base64.StdEncoding.EncodeToString(sig),
		TAURL: signer.TimeAuthorityURL(),
	}
	for i, der := range certs {
		rec.Certs[i] = base64.StdEncoding.EncodeToString(der)
	}
	if ocsp := signer.OCSPVal(); len(ocsp) > 0 {
		rec.OCSP = base64.StdEncoding.EncodeToString(ocsp)
	}
	m.Signature = rec
	return &ManifestStore{
		ActiveManifest: m.Label,
		Manifests:      map[string]*Manifest{m.Label: m},
	}, nil
}
