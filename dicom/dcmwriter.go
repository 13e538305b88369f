// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
)

// dcmWriter is a wrapper around io.Writer for emitting tags, lengths and padded values. It counts
// the bytes written so errors can report an offset.
type dcmWriter struct {
	w            io.Writer
	bytesWritten int64
	scratch      [4]byte
}

func newDcmWriter(w io.Writer) *dcmWriter {
	return &dcmWriter{w: w}
}

func (dw *dcmWriter) Tag(order binary.ByteOrder, tag DataElementTag) error {
	if err := dw.UInt16(order, tag.GroupNumber()); err != nil {
		return err
	}
	return dw.UInt16(order, tag.ElementNumber())
}

func (dw *dcmWriter) Delimiter(order binary.ByteOrder, tag DataElementTag) error {
	if err := dw.Tag(order, tag); err != nil {
		return fmt.Errorf("writing delimiter tag: %v", err)
	}
	if err := dw.UInt32(order, 0); err != nil {
		return fmt.Errorf("writing item length of delimiter: %v", err)
	}
	return nil
}

func (dw *dcmWriter) UInt16(order binary.ByteOrder, v uint16) error {
	order.PutUint16(dw.scratch[:2], v)
	return dw.Bytes(dw.scratch[:2])
}

func (dw *dcmWriter) UInt32(order binary.ByteOrder, v uint32) error {
	order.PutUint32(dw.scratch[:4], v)
	return dw.Bytes(dw.scratch[:4])
}

func (dw *dcmWriter) String(s string) error {
	return dw.Bytes([]byte(s))
}

func (dw *dcmWriter) Bytes(b []byte) error {
	n, err := dw.w.Write(b)
	dw.bytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("writing at offset %d: %w", dw.bytesWritten, err)
	}
	return nil
}

// BytesWritten is the number of bytes emitted so far
func (dw *dcmWriter) BytesWritten() int64 {
	return dw.bytesWritten
}

// padEven appends the padding byte to values of odd length. Value fields are always of even
// length in DICOM: PS3.5 7.1.1.
func padEven(b []byte, padding byte) []byte {
	if len(b)%2 == 0 {
		return b
	}
	padded := make([]byte, len(b)+1)
	copy(padded, b)
	padded[len(b)] = padding
	return padded
}
