package ptd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// TypeID is the ASCII literal closing every list-mode container.
const TypeID = "LARGE_PET_LM_RAWDATA"

const (
	lengthFieldSize = 4
	trailerSize     = lengthFieldSize + len(TypeID)
)

// Layout locates the regions of a container:
//
//	[events][metadata][uint32 LE metadata length][TypeID]
type Layout struct {
	Size           int64 `json:"size"`
	EventLength    int64 `json:"event_length"`
	MetadataOffset int64 `json:"metadata_offset"`
	MetadataLength int64 `json:"metadata_length"`
}

// Locate validates the trailer of a container of the given size and computes its layout.
func Locate(r io.ReaderAt, size int64) (Layout, error) {
	if size < int64(trailerSize) {
		return Layout{}, newError(CodeFormatMismatch, "locate trailer",
			fmt.Sprintf("at least %d bytes", trailerSize), strconv.FormatInt(size, 10))
	}

	trailer := make([]byte, trailerSize)
	if _, err := r.ReadAt(trailer, size-int64(trailerSize)); err != nil {
		return Layout{}, fmt.Errorf("reading trailer: %w", err)
	}

	if id := string(trailer[lengthFieldSize:]); id != TypeID {
		return Layout{}, newError(CodeFormatMismatch, "locate trailer", TypeID, id)
	}

	metaLength := int64(binary.LittleEndian.Uint32(trailer[:lengthFieldSize]))
	available := size - int64(trailerSize)
	if metaLength > available {
		return Layout{}, newError(CodeFormatMismatch, "locate metadata",
			fmt.Sprintf("at most %d bytes", available), strconv.FormatInt(metaLength, 10))
	}

	return Layout{
		Size:           size,
		EventLength:    available - metaLength,
		MetadataOffset: available - metaLength,
		MetadataLength: metaLength,
	}, nil
}

// ReadMetadata returns a copy of the metadata blob of a located container.
func ReadMetadata(r io.ReaderAt, l Layout) ([]byte, error) {
	blob := make([]byte, l.MetadataLength)
	if _, err := r.ReadAt(blob, l.MetadataOffset); err != nil {
		return nil, fmt.Errorf("reading metadata at offset %d: %w", l.MetadataOffset, err)
	}
	return blob, nil
}

// WriteTrailer appends the metadata blob, its length and the type identifier. Written after the
// event words it completes a valid container.
func WriteTrailer(w io.Writer, blob []byte) error {
	if uint64(len(blob)) > math.MaxUint32 {
		return newError(CodeFormatMismatch, "write trailer",
			"metadata of at most 4 GiB", strconv.Itoa(len(blob)))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(blob); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	var length [lengthFieldSize]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(blob)))
	if _, err := bw.Write(length[:]); err != nil {
		return fmt.Errorf("writing metadata length: %w", err)
	}
	if _, err := bw.WriteString(TypeID); err != nil {
		return fmt.Errorf("writing type identifier: %w", err)
	}
	return bw.Flush()
}
