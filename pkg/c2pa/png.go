package c2pa

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// PNG manifest payloads live in a single caBX chunk ahead of the image
// data, matching where C2PA stores JUMBF boxes in PNG files.
const pngManifestChunk = "caBX"

// pngMaxChunkLength rejects chunk headers claiming absurd sizes before
// any allocation happens. The PNG spec caps lengths at 2^31-1; nothing
// this engine handles approaches that.
const pngMaxChunkLength = 1 << 30

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type pngFormat struct{}

func (pngFormat) extract(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	if err := pngExpectSignature(br); err != nil {
		return nil, err
	}
	for {
		typ, data, _, err := pngReadChunk(br)
		if err != nil {
			return nil, err
		}
		if typ == pngManifestChunk {
			return data, nil
		}
		if typ == "IEND" {
			return nil, ErrManifestNotFound
		}
	}
}

func (pngFormat) embed(src io.Reader, dest io.Writer, payload []byte) error {
	br := bufio.NewReader(src)
	if err := pngExpectSignature(br); err != nil {
		return err
	}
	if _, err := dest.Write(pngSignature); err != nil {
		return err
	}
	inserted := payload == nil
	for {
		typ, data, crc, err := pngReadChunk(br)
		if err != nil {
			return err
		}
		if typ == pngManifestChunk {
			continue
		}
		if !inserted && (typ == "IDAT" || typ == "IEND") {
			if err := pngWriteChunk(dest, pngManifestChunk, payload); err != nil {
				return err
			}
			inserted = true
		}
		if err := pngCopyChunk(dest, typ, data, crc); err != nil {
			return err
		}
		if typ == "IEND" {
			return nil
		}
	}
}

func (pngFormat) wrap(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngWriteChunk(&buf, pngManifestChunk, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pngExpectSignature(br *bufio.Reader) error {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return fmt.Errorf("reading PNG header: %w", err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return fmt.Errorf("not a PNG: bad signature")
	}
	return nil
}

func pngReadChunk(br *bufio.Reader) (string, []byte, uint32, error) {
	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return "", nil, 0, fmt.Errorf("reading PNG chunk header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:4])
	typ := string(header[4:8])
	if length > pngMaxChunkLength {
		return "", nil, 0, fmt.Errorf("malformed PNG: chunk %s claims %d bytes", typ, length)
	}
	// grow with the data actually present rather than trusting the
	// header for one huge allocation
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, br, int64(length)); err != nil {
		return "", nil, 0, fmt.Errorf("reading PNG chunk %s: %w", typ, err)
	}
	data := buf.Bytes()
	var crcbs [4]byte
	if _, err := io.ReadFull(br, crcbs[:]); err != nil {
		return "", nil, 0, fmt.Errorf("reading PNG chunk crc: %w", err)
	}
	return typ, data, binary.BigEndian.Uint32(crcbs[:]), nil
}

func pngCopyChunk(w io.Writer, typ string, data []byte, crc uint32) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], typ)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	var crcbs [4]byte
	binary.BigEndian.PutUint32(crcbs[:], crc)
	_, err := w.Write(crcbs[:])
	return err
}

func pngWriteChunk(w io.Writer, typ string, data []byte) error {
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	return pngCopyChunk(w, typ, data, crc.Sum32())
}
