package c2pa

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrManifestNotFound is returned when an asset carries no manifest data.
var ErrManifestNotFound = errors.New("no c2pa manifest found")

// assetFormat handles embedding and extracting manifest payloads for one
// asset container format.
type assetFormat interface {
	// extract returns the embedded payload, or ErrManifestNotFound.
	extract(r io.Reader) ([]byte, error)

	// embed copies src to dest, replacing any existing payload with the
	// given one. A nil payload strips without inserting.
	embed(src io.Reader, dest io.Writer, payload []byte) error

	// wrap returns the payload in its format-specific embeddable form,
	// e.g. JPEG APP11 segments ready for caller-managed insertion.
	wrap(payload []byte) ([]byte, error)
}

// ErrUnsupportedFormat is returned for mime types the engine cannot embed
// into or extract from.
var ErrUnsupportedFormat = errors.New("unsupported asset format")

func formatFor(formatOrExt string) (assetFormat, error) {
	f := strings.ToLower(strings.TrimPrefix(formatOrExt, "."))
	switch f {
	case "image/jpeg", "jpeg", "jpg":
		return jpegFormat{}, nil
	case "image/png", "png":
		return pngFormat{}, nil
	case "application/c2pa", "c2pa":
		return rawFormat{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, formatOrExt)
}

func formatForPath(path string) (assetFormat, string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	mime := map[string]string{
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"png":  "image/png",
		"c2pa": "application/c2pa",
	}[ext]
	if mime == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	f, err := formatFor(mime)
	return f, mime, err
}

// rawFormat treats the whole asset as the manifest payload
// (application/c2pa sidecar files).
type rawFormat struct{}

func (rawFormat) extract(r io.Reader) ([]byte, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bs) == 0 {
		return nil, ErrManifestNotFound
	}
	return bs, nil
}

func (rawFormat) embed(_ io.Reader, dest io.Writer, payload []byte) error {
	_, err := dest.Write(payload)
	return err
}

func (rawFormat) wrap(payload []byte) ([]byte, error) {
	return payload, nil
}
