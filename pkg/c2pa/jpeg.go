package c2pa

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// JPEG manifest payloads live in APP11 segments tagged with a magic
// prefix and a sequence number, split across segments as needed.
const (
	jpegMarkerSOI   = 0xd8
	jpegMarkerEOI   = 0xd9
	jpegMarkerSOS   = 0xda
	jpegMarkerAPP0  = 0xe0
	jpegMarkerAPP1  = 0xe1
	jpegMarkerAPP11 = 0xeb

	jpegMagic        = "C2PA"
	jpegMaxChunkSize = 60000
)

type jpegFormat struct{}

func (jpegFormat) extract(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	if err := jpegExpectSOI(br); err != nil {
		return nil, err
	}
	var payload []byte
	found := false
	for {
		marker, err := jpegNextMarker(br)
		if err != nil {
			return nil, err
		}
		if marker == jpegMarkerEOI || marker == jpegMarkerSOS {
			break
		}
		if jpegStandalone(marker) {
			continue
		}
		data, err := jpegSegmentData(br)
		if err != nil {
			return nil, err
		}
		if marker == jpegMarkerAPP11 && len(data) >= len(jpegMagic)+2 && string(data[:len(jpegMagic)]) == jpegMagic {
			payload = append(payload, data[len(jpegMagic)+2:]...)
			found = true
		}
	}
	if !found {
		return nil, ErrManifestNotFound
	}
	return payload, nil
}

func (jpegFormat) embed(src io.Reader, dest io.Writer, payload []byte) error {
	br := bufio.NewReader(src)
	if err := jpegExpectSOI(br); err != nil {
		return err
	}
	if _, err := dest.Write([]byte{0xff, jpegMarkerSOI}); err != nil {
		return err
	}
	inserted := payload == nil
	for {
		marker, err := jpegNextMarker(br)
		if err != nil {
			return err
		}
		if marker == jpegMarkerEOI {
			if !inserted {
				if err := jpegWriteChunks(dest, payload); err != nil {
					return err
				}
			}
			_, err := dest.Write([]byte{0xff, jpegMarkerEOI})
			return err
		}
		if jpegStandalone(marker) {
			if _, err := dest.Write([]byte{0xff, marker}); err != nil {
				return err
			}
			continue
		}
		// the manifest goes after the leading APP0/APP1 segments
		if !inserted && marker != jpegMarkerAPP0 && marker != jpegMarkerAPP1 {
			if err := jpegWriteChunks(dest, payload); err != nil {
				return err
			}
			inserted = true
		}
		data, err := jpegSegmentData(br)
		if err != nil {
			return err
		}
		isManifest := marker == jpegMarkerAPP11 && len(data) >= len(jpegMagic)+2 && string(data[:len(jpegMagic)]) == jpegMagic
		if !isManifest {
			if err := jpegWriteSegment(dest, marker, data); err != nil {
				return err
			}
		}
		if marker == jpegMarkerSOS {
			// entropy-coded data and trailer pass through untouched
			_, err := io.Copy(dest, br)
			return err
		}
	}
}

func (jpegFormat) wrap(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpegWriteChunks(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jpegExpectSOI(br *bufio.Reader) error {
	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil {
		return fmt.Errorf("reading JPEG header: %w", err)
	}
	if soi[0] != 0xff || soi[1] != jpegMarkerSOI {
		return fmt.Errorf("not a JPEG: missing SOI marker")
	}
	return nil
}

// jpegNextMarker consumes fill bytes and returns the next marker code.
func jpegNextMarker(br *bufio.Reader) (byte, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("reading JPEG marker: %w", err)
	}
	if b != 0xff {
		return 0, fmt.Errorf("malformed JPEG: expected marker, got 0x%02x", b)
	}
	for {
		b, err = br.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("reading JPEG marker: %w", err)
		}
		if b != 0xff {
			return b, nil
		}
	}
}

func jpegStandalone(marker byte) bool {
	return marker == 0x01 || (marker >= 0xd0 && marker <= 0xd9)
}

func jpegSegmentData(br *bufio.Reader) ([]byte, error) {
	var lenbs [2]byte
	if _, err := io.ReadFull(br, lenbs[:]); err != nil {
		return nil, fmt.Errorf("reading JPEG segment length: %w", err)
	}
	segLen := binary.BigEndian.Uint16(lenbs[:])
	if segLen < 2 {
		return nil, fmt.Errorf("malformed JPEG: segment length %d", segLen)
	}
	data := make([]byte, segLen-2)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("reading JPEG segment: %w", err)
	}
	return data, nil
}

func jpegWriteSegment(w io.Writer, marker byte, data []byte) error {
	header := []byte{0xff, marker, 0, 0}
	binary.BigEndian.PutUint16(header[2:], uint16(len(data)+2))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func jpegWriteChunks(w io.Writer, payload []byte) error {
	seq := uint16(0)
	for first := true; first || len(payload) > 0; first = false {
		n := min(len(payload), jpegMaxChunkSize)
		chunk := make([]byte, 0, len(jpegMagic)+2+n)
		chunk = append(chunk, jpegMagic...)
		chunk = binary.BigEndian.AppendUint16(chunk, seq)
		chunk = append(chunk, payload[:n]...)
		if err := jpegWriteSegment(w, jpegMarkerAPP11, chunk); err != nil {
			return err
		}
		payload = payload[n:]
		seq++
	}
	return nil
}
