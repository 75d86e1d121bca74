package c2pa

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// httpClient fetches remote manifests; swapped out in tests.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// Reader parses an asset's embedded (or remotely referenced) manifest
// store into queryable form and validates its signatures.
type Reader struct {
	store *ManifestStore
}

// FromStream reads the manifest store from an asset stream with the
// given mime type or extension.
func FromStream(format string, r io.Reader) (*Reader, error) {
	fm, err := formatFor(format)
	if err != nil {
		return nil, err
	}
	payload, err := fm.extract(r)
	if err != nil {
		return nil, err
	}
	return fromPayload(payload)
}

// FromFile reads the manifest store from a file, deriving the format
// from the extension.
func FromFile(path string) (*Reader, error) {
	_, mime, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromStream(mime, f)
}

func fromPayload(payload []byte) (*Reader, error) {
	var c container
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("parsing manifest data: %w", err)
	}
	if c.Store == nil && c.RemoteURL != "" {
		store, err := fetchRemoteStore(c.RemoteURL)
		if err != nil {
			return nil, err
		}
		c.Store = store
	}
	if c.Store == nil || len(c.Store.Manifests) == 0 {
		return nil, ErrManifestNotFound
	}
	r := &Reader{store: c.Store}
	r.store.ValidationStatus = r.validate()
	return r, nil
}

func fetchRemoteStore(url string) (*ManifestStore, error) {
	if !currentSettings().Verify.RemoteManifestFetch {
		return nil, fmt.Errorf("remote manifest fetch disabled for %s", url)
	}
	log().Debug("fetching remote manifest", "url", url)
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("remote manifest fetch failed for %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote manifest fetch failed for %s: status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote manifest fetch failed for %s: %w", url, err)
	}
	var c container
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("parsing remote manifest from %s: %w", url, err)
	}
	return c.Store, nil
}

// JSON returns the manifest store, including validation status.
func (r *Reader) JSON() string {
	return r.store.JSON()
}

// Store returns the parsed manifest store.
func (r *Reader) Store() *ManifestStore {
	return r.store
}

// GetActiveManifest returns the active manifest, or nil when absent.
func (r *Reader) GetActiveManifest() *Manifest {
	return r.store.Active()
}

// ResourceToStream writes the resource stored under uri to w, returning
// the number of bytes written. Resources from every manifest in the
// store are searched.
func (r *Reader) ResourceToStream(uri string, w io.Writer) (int64, error) {
	for _, m := range r.store.Manifests {
		encoded, ok := m.Resources[uri]
		if !ok {
			continue
		}
		bs, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return -1, fmt.Errorf("decoding resource %s: %w", uri, err)
		}
		n, err := w.Write(bs)
		return int64(n), err
	}
	return -1, fmt.Errorf("resource not found: %s", uri)
}

// validate checks every manifest signature against its certificate chain
// and returns the failures. An empty slice means validation passed.
func (r *Reader) validate() []ValidationStatus {
	status := []ValidationStatus{}
	for label, m := range r.store.Manifests {
		if m.Signature == nil {
			status = append(status, ValidationStatus{
				Code:        "claimSignature.missing",
				URL:         label,
				Explanation: "manifest has no signature record",
			})
			continue
		}
		if err := verifyManifest(m); err != nil {
			status = append(status, ValidationStatus{
				Code:        validationCode(err),
				URL:         label,
				Explanation: err.Error(),
			})
		}
	}
	return status
}

type credentialError struct{ err error }

func (e credentialError) Error() string { return e.err.Error() }
func (e credentialError) Unwrap() error { return e.err }

func validationCode(err error) string {
	if _, ok := err.(credentialError); ok {
		return "signingCredential.invalid"
	}
	return "claimSignature.mismatch"
}

func verifyManifest(m *Manifest) error {
	rec := m.Signature
	if len(rec.Certs) == 0 {
		return credentialError{fmt.Errorf("signature record has no certificates")}
	}
	leafDER, err := base64.StdEncoding.DecodeString(rec.Certs[0])
	if err != nil {
		return credentialError{fmt.Errorf("decoding leaf certificate: %w", err)}
	}
	cert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return credentialError{fmt.Errorf("parsing leaf certificate: %w", err)}
	}
	alg, err := GetSigningAlgorithm(rec.Alg)
	if err != nil {
		return credentialError{err}
	}
	sig, err := base64.StdEncoding.DecodeString(rec.Sig)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	claim, err := m.claimBytes()
	if err != nil {
		return err
	}
	return alg.Verify(cert.PublicKey, claim, sig)
}
