package ffi

import (
	"fmt"
	"io"
)

// Seek mode codes shared with the C boundary. They match io's whence
// constants (0=start, 1=current, 2=end) so no translation is needed.
const (
	SeekModeStart   = 0
	SeekModeCurrent = 1
	SeekModeEnd     = 2
)

// StreamCallbacks supplies the four I/O operations backing a Stream,
// plus an optional Close releasing the foreign context. Read and Write
// return a byte count, Seek the new absolute position, Flush a status;
// all signal failure with a negative value.
type StreamCallbacks struct {
	Read  func(p []byte) int
	Seek  func(offset int64, mode int) int64
	Write func(p []byte) int
	Flush func() int
	Close func()
}

// Stream adapts the callbacks into the engine's byte-stream capability.
// It owns the foreign context from construction: Close destroys it. No
// buffering, no locking; a Stream must not be shared across threads.
type Stream struct {
	cb     StreamCallbacks
	closed bool
}

// NewStream wraps callbacks in a Stream. All callbacks must remain valid
// until Close.
func NewStream(cb StreamCallbacks) *Stream {
	return &Stream{cb: cb}
}

// StreamError reports a failed stream callback. The callback contract
// carries no error code, only the failing operation is known.
type StreamError struct {
	Op string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s callback failed", e.Op)
}

func (s *Stream) Read(p []byte) (int, error) {
	n := s.cb.Read(p)
	if n < 0 {
		return 0, &StreamError{Op: "read"}
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	if n > len(p) {
		return 0, fmt.Errorf("stream read callback returned %d bytes for a %d byte buffer", n, len(p))
	}
	return n, nil
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	pos := s.cb.Seek(offset, whence)
	if pos < 0 {
		return 0, &StreamError{Op: "seek"}
	}
	return pos, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	n := s.cb.Write(p)
	if n < 0 {
		return 0, &StreamError{Op: "write"}
	}
	if n > len(p) {
		return 0, fmt.Errorf("stream write callback returned %d bytes for a %d byte buffer", n, len(p))
	}
	return n, nil
}

// Flush forwards to the flush callback.
func (s *Stream) Flush() error {
	if s.cb.Flush() < 0 {
		return &StreamError{Op: "flush"}
	}
	return nil
}

// Close releases the foreign context exactly once. The stream must not
// be used afterwards.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cb.Close != nil {
		s.cb.Close()
	}
	return nil
}

var _ io.ReadWriteSeeker = (*Stream)(nil)
