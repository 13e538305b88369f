package ptd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// WordSize is the size in bytes of a list-mode word.
	WordSize = 4

	// DefaultBufferSize is the read size of the word reader and the tail scanner.
	DefaultBufferSize = 0x100
)

// Word is a 32-bit list-mode word, little endian on disk.
type Word uint32

// WordReader yields the words of an event stream of known length through a fixed size buffer.
// It cannot seek; a new reader over a new section restarts the stream.
type WordReader struct {
	r         io.Reader
	ctx       context.Context
	remaining int64
	buf       []byte
	pos, end  int
	offset    int64
}

// NewWordReader reads n bytes of words from r. bufSize is rounded down to a whole number of
// words; values below one word select DefaultBufferSize.
func NewWordReader(r io.Reader, n int64, bufSize int) *WordReader {
	bufSize -= bufSize % WordSize
	if bufSize < WordSize {
		bufSize = DefaultBufferSize
	}
	return &WordReader{
		r:         r,
		ctx:       context.Background(),
		remaining: n,
		buf:       make([]byte, bufSize),
	}
}

// WithContext makes the reader fail with the context's error at the next refill once ctx is done.
func (wr *WordReader) WithContext(ctx context.Context) *WordReader {
	wr.ctx = ctx
	return wr
}

// Next returns the next word, or io.EOF once the stream is exhausted. A final partial word is a
// TruncatedStream error.
func (wr *WordReader) Next() (Word, error) {
	if wr.end-wr.pos == 0 {
		if wr.remaining == 0 {
			return 0, io.EOF
		}
		if err := wr.refill(); err != nil {
			return 0, err
		}
	}

	if wr.end-wr.pos < WordSize {
		return 0, &Error{
			Code:     CodeTruncatedStream,
			Op:       "read word",
			Expected: fmt.Sprintf("%d bytes", WordSize),
			Found:    fmt.Sprintf("%d bytes at offset %d", wr.end-wr.pos, wr.offset),
		}
	}

	w := Word(binary.LittleEndian.Uint32(wr.buf[wr.pos:]))
	wr.pos += WordSize
	wr.offset += WordSize
	return w, nil
}

// Offset is the number of stream bytes consumed as words.
func (wr *WordReader) Offset() int64 {
	return wr.offset
}

func (wr *WordReader) refill() error {
	if err := wr.ctx.Err(); err != nil {
		return err
	}

	n := int64(len(wr.buf))
	if wr.remaining < n {
		n = wr.remaining
	}
	got, err := io.ReadFull(wr.r, wr.buf[:n])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{
			Code:     CodeTruncatedStream,
			Op:       "read words",
			Expected: strconv.FormatInt(wr.offset+wr.remaining, 10) + " bytes",
			Found:    strconv.FormatInt(wr.offset+int64(got), 10) + " bytes",
			Err:      err,
		}
	}
	if err != nil {
		return fmt.Errorf("reading words at offset %d: %w", wr.offset, err)
	}

	wr.pos, wr.end = 0, int(n)
	wr.remaining -= n
	return nil
}
