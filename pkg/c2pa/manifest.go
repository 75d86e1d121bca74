package c2pa

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ManifestDefinition is the caller-supplied JSON description of a
// manifest before it is signed.
type ManifestDefinition struct {
	ClaimGenerator string       `json:"claim_generator,omitempty"`
	Title          string       `json:"title,omitempty"`
	Format         string       `json:"format,omitempty"`
	InstanceID     string       `json:"instance_id,omitempty"`
	Label          string       `json:"label,omitempty"`
	Assertions     []Assertion  `json:"assertions"`
	Ingredients    []Ingredient `json:"ingredients,omitempty"`

	// RemoteURL points readers at an externally hosted manifest. Set
	// together with no-embed to produce assets carrying only a reference.
	RemoteURL string `json:"remote_url,omitempty"`
}

// Assertion is a labeled statement attached to a manifest. Data is kept
// as raw JSON; the engine does not interpret assertion contents.
type Assertion struct {
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data,omitempty"`
	Kind  string          `json:"kind,omitempty"`
}

// Ingredient records an input asset a manifest was derived from.
type Ingredient struct {
	Title        string `json:"title,omitempty"`
	Format       string `json:"format,omitempty"`
	InstanceID   string `json:"instance_id,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Hash         string `json:"hash,omitempty"`
	ManifestData string `json:"manifest_data,omitempty"`
}

// Manifest is a signed claim as stored in an asset.
//
// The claim bytes covered by the signature are the compact JSON encoding
// of the manifest with the signature record omitted; see claimBytes.
type Manifest struct {
	ClaimGenerator string            `json:"claim_generator"`
	Title          string            `json:"title,omitempty"`
	Format         string            `json:"format,omitempty"`
	InstanceID     string            `json:"instance_id"`
	Label          string            `json:"label"`
	Assertions     []Assertion       `json:"assertions"`
	Ingredients    []Ingredient      `json:"ingredients,omitempty"`
	Resources      map[string]string `json:"resources,omitempty"`
	Signature      *SignatureRecord  `json:"signature,omitempty"`
}

// SignatureRecord holds the signature over the claim bytes plus the
// material needed to verify it.
type SignatureRecord struct {
	Alg   string   `json:"alg"`
	Certs []string `json:"certs"`
	Sig   string   `json:"sig"`
	TAURL string   `json:"ta_url,omitempty"`
	OCSP  string   `json:"ocsp,omitempty"`
}

// ManifestStore is the set of manifests carried by an asset.
type ManifestStore struct {
	ActiveManifest   string               `json:"active_manifest"`
	Manifests        map[string]*Manifest `json:"manifests"`
	ValidationStatus []ValidationStatus   `json:"validation_status"`
}

// ValidationStatus reports one validation outcome for a manifest store.
type ValidationStatus struct {
	Code        string `json:"code"`
	URL         string `json:"url,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// container is the embedded payload: either a manifest store or a
// reference to one hosted remotely.
type container struct {
	RemoteURL string         `json:"remote_url,omitempty"`
	Store     *ManifestStore `json:"manifest_store,omitempty"`
}

// JSON renders the store, including validation status, for callers.
func (s *ManifestStore) JSON() string {
	bs, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bs)
}

// Active returns the active manifest, or nil when the store is empty.
func (s *ManifestStore) Active() *Manifest {
	if s == nil {
		return nil
	}
	return s.Manifests[s.ActiveManifest]
}

// claimBytes returns the byte range covered by the manifest signature.
// json.Marshal of the struct is deterministic, so reading a manifest back
// and re-encoding it reproduces the signed bytes exactly.
func (m *Manifest) claimBytes() ([]byte, error) {
	claim := *m
	claim.Signature = nil
	bs, err := json.Marshal(&claim)
	if err != nil {
		return nil, fmt.Errorf("encoding claim: %w", err)
	}
	return bs, nil
}

func newManifestLabel() string {
	return "urn:uuid:" + uuid.NewString()
}

func newInstanceID() string {
	return "xmp:iid:" + uuid.NewString()
}
