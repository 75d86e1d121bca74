package c2pa

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Whole-file convenience operations: these bypass caller-supplied streams
// entirely and work on paths, mirroring the boundary's c2pa_read_file,
// c2pa_read_ingredient_file and c2pa_sign_file entry points.

// ReadFile returns the manifest store JSON for the asset at path. When
// dataDir is non-empty, binary resources (thumbnails etc.) are written
// into it. dataDir is optional here, unlike ReadIngredientFile.
func ReadFile(path string, dataDir string) (string, error) {
	reader, err := FromFile(path)
	if err != nil {
		return "", err
	}
	if dataDir != "" {
		if err := writeResources(reader, dataDir); err != nil {
			return "", err
		}
	}
	return reader.JSON(), nil
}

// ReadIngredientFile returns an Ingredient JSON description of the asset
// at path. Extracted manifest data is written to dataDir, which is
// required for this operation.
func ReadIngredientFile(path string, dataDir string) (string, error) {
	if dataDir == "" {
		return "", errors.New("data_dir is required when reading an ingredient")
	}
	_, mime, err := formatForPath(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	dgst, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("hashing ingredient: %w", err)
	}
	ing := Ingredient{
		Title:      filepath.Base(path),
		Format:     mime,
		InstanceID: newInstanceID(),
		Hash:       dgst.String(),
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	// carry any embedded manifest data alongside the ingredient
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}
	fm, _ := formatFor(mime)
	payload, err := fm.extract(f)
	if err == nil {
		name := "manifest_data.c2pa"
		if err := os.WriteFile(filepath.Join(dataDir, name), payload, 0o644); err != nil {
			return "", err
		}
		ing.ManifestData = name
	} else if !errors.Is(err, ErrManifestNotFound) {
		return "", err
	}
	bs, err := json.Marshal(&ing)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// SignerInfo configures the signer used by SignFile: algorithm name, PEM
// certificate chain, PEM private key, and an optional timestamp
// authority URL.
type SignerInfo struct {
	Alg        string
	SignCert   []byte
	PrivateKey []byte
	TAURL      string
}

// SignFile signs sourcePath with the manifest definition manifestJSON
// and writes the result to destPath. Resources referenced by the
// manifest are loaded from dataDir when provided.
func SignFile(sourcePath, destPath, manifestJSON string, info *SignerInfo, dataDir string) ([]byte, error) {
	signer, err := NewLocalSigner(info.SignCert, info.PrivateKey, info.Alg, info.TAURL)
	if err != nil {
		return nil, err
	}
	builder, err := BuilderFromJSON(manifestJSON)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		if err := loadResources(builder, dataDir); err != nil {
			return nil, err
		}
	}
	return builder.SignFile(signer, sourcePath, destPath)
}

func writeResources(reader *Reader, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	for _, m := range reader.store.Manifests {
		for uri, encoded := range m.Resources {
			bs, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return fmt.Errorf("decoding resource %s: %w", uri, err)
			}
			name := filepath.Base(filepath.FromSlash(uri))
			if err := os.WriteFile(filepath.Join(dataDir, name), bs, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadResources(builder *Builder, dataDir string) error {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := os.Open(filepath.Join(dataDir, e.Name()))
		if err != nil {
			return err
		}
		err = builder.AddResource(e.Name(), f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
