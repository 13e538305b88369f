package ptd

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *WordReader) ([]Word, error) {
	t.Helper()
	var words []Word
	for {
		w, err := r.Next()
		if err == io.EOF {
			return words, nil
		}
		if err != nil {
			return words, err
		}
		words = append(words, w)
	}
}

func TestWordReader(t *testing.T) {
	want := syntheticStream(50)
	data := encodeWords(want)

	for _, bufSize := range []int{0, 1, 4, 6, 8, 12, DefaultBufferSize, 1 << 16} {
		r := NewWordReader(bytes.NewReader(data), int64(len(data)), bufSize)
		got, err := readAll(t, r)
		require.NoError(t, err, "buffer size %d", bufSize)
		assert.Equal(t, want, got, "buffer size %d", bufSize)
		assert.Equal(t, int64(len(data)), r.Offset())
	}
}

func TestWordReaderStopsAtLength(t *testing.T) {
	data := encodeWords([]Word{1, 2, 3, 4})

	r := NewWordReader(bytes.NewReader(data), 8, 4)
	got, err := readAll(t, r)
	require.NoError(t, err)
	assert.Equal(t, []Word{1, 2}, got)
}

func TestWordReaderLittleEndian(t *testing.T) {
	r := NewWordReader(bytes.NewReader([]byte{0x10, 0x27, 0x00, 0x80}), 4, 0)
	w, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Word(0x80002710), w)
}

func TestWordReaderTruncated(t *testing.T) {
	data := append(encodeWords([]Word{0x80000000}), 0x01, 0x00)

	for _, bufSize := range []int{4, DefaultBufferSize} {
		r := NewWordReader(bytes.NewReader(data), int64(len(data)), bufSize)
		got, err := readAll(t, r)
		require.ErrorIs(t, err, ErrTruncatedStream, "buffer size %d", bufSize)
		assert.Equal(t, []Word{0x80000000}, got)
	}
}

func TestWordReaderShortSource(t *testing.T) {
	data := encodeWords([]Word{1, 2})

	r := NewWordReader(bytes.NewReader(data), 16, 4)
	got, err := readAll(t, r)
	require.ErrorIs(t, err, ErrTruncatedStream)
	assert.Equal(t, []Word{1, 2}, got)
}

func TestWordReaderContext(t *testing.T) {
	data := encodeWords([]Word{1, 2, 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewWordReader(bytes.NewReader(data), int64(len(data)), 4).WithContext(ctx)
	_, err := r.Next()
	require.ErrorIs(t, err, context.Canceled)
}
