package frontend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	// A length prefix is a base-128 varint that must fit in 32 bits.
	maxPrefixBytes = 5
	// MaxFrameSize bounds a single payload; a larger prefix is treated as
	// stream corruption rather than an allocation request.
	MaxFrameSize = 256 << 20
)

// FramingError reports a length prefix or payload that cannot be read. The
// stream cannot be resynchronised after one.
type FramingError struct {
	Offset int64 // offset of the frame's first byte
	Err    error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("status stream: bad frame at byte %d: %v", e.Offset, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

// DecodeError reports a well-framed payload that is not a valid event. The
// decoder has already skipped the frame; callers may keep reading.
type DecodeError struct {
	Offset int64
	Size   int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("status stream: undecodable %d-byte frame at byte %d: %v", e.Size, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder reads events from a status stream.
type Decoder struct {
	r    *bufio.Reader
	read int64
	buf  []byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// BytesRead is the number of bytes consumed so far.
func (d *Decoder) BytesRead() int64 { return d.read }

// Next returns the next event. It returns io.EOF when the stream ends on a
// frame boundary, a *FramingError when it ends anywhere else or the prefix is
// malformed, and a *DecodeError for a payload that does not hold exactly one
// event. Only a *DecodeError leaves the decoder usable.
func (d *Decoder) Next() (Event, error) {
	start := d.read
	size, err := d.readPrefix(start)
	if err != nil {
		return nil, err
	}

	if cap(d.buf) < size {
		d.buf = make([]byte, size)
	}
	d.buf = d.buf[:size]
	// ReadFull retries short reads from pipes.
	n, err := io.ReadFull(d.r, d.buf)
	d.read += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &FramingError{Offset: start, Err: fmt.Errorf("payload: read %d of %d bytes: %w", n, size, err)}
	}

	ev, err := parseStatus(d.buf)
	if err != nil {
		return nil, &DecodeError{Offset: start, Size: size, Err: err}
	}
	return ev, nil
}

func (d *Decoder) readPrefix(start int64) (int, error) {
	var size uint32
	for i := 0; i < maxPrefixBytes; i++ {
		c, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if i == 0 {
					return 0, io.EOF
				}
				err = io.ErrUnexpectedEOF
				return 0, &FramingError{Offset: start, Err: fmt.Errorf("length prefix: %w", err)}
			}
			return 0, fmt.Errorf("read status stream: %w", err)
		}
		d.read++
		if i == maxPrefixBytes-1 {
			if c&0x80 != 0 {
				return 0, &FramingError{Offset: start, Err: errors.New("length prefix longer than 5 bytes")}
			}
			if c&0x70 != 0 {
				return 0, &FramingError{Offset: start, Err: errors.New("length prefix overflows 32 bits")}
			}
		}
		size |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			break
		}
	}
	if size > MaxFrameSize {
		return 0, &FramingError{Offset: start, Err: fmt.Errorf("frame of %d bytes exceeds limit", size)}
	}
	return int(size), nil
}
