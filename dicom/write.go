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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

func writeDataElement(dw *dcmWriter, syntax transferSyntax, element *DataElement) error {
	vr := element.VR
	if vr == nil {
		vr = element.Tag.DictionaryVR()
	}

	if vr.kind == sequenceVR {
		return writeSequenceElement(dw, syntax, element.Tag, vr, element)
	}

	value, err := encodeValue(syntax, vr, element.ValueField)
	if err != nil {
		return fmt.Errorf("encoding value of %v: %v", element.Tag, err)
	}
	if uint64(len(value)) >= UndefinedLength {
		return fmt.Errorf("value of %v too long: %d bytes", element.Tag, len(value))
	}

	if err := writeElementHeader(dw, syntax, element.Tag, vr, uint32(len(value))); err != nil {
		return err
	}
	if err := dw.Bytes(value); err != nil {
		return fmt.Errorf("writing value: %v", err)
	}

	return nil
}

func writeElementHeader(dw *dcmWriter, syntax transferSyntax, tag DataElementTag, vr *VR, length uint32) error {
	if err := dw.Tag(syntax.byteOrder(), tag); err != nil {
		return fmt.Errorf("writing tag: %v", err)
	}
	if err := syntax.writeVR(dw, vr); err != nil {
		return fmt.Errorf("writing VR: %v", err)
	}
	if err := syntax.writeValueLength(dw, vr, length); err != nil {
		return fmt.Errorf("writing length: %v", err)
	}
	return nil
}

// encodeValue renders a ValueField to its padded, even length byte form
func encodeValue(syntax transferSyntax, vr *VR, valueField interface{}) ([]byte, error) {
	spacePadding := byte(0x20)
	nullPadding := byte(0x00)

	switch vr.kind {
	case textVR, unlimitedTextVR:
		return encodeText(spacePadding, valueField)
	case uniqueIdentifierVR:
		return encodeText(nullPadding, valueField)
	case numberBinaryVR:
		return encodeNumberBinary(syntax.byteOrder(), valueField)
	case bulkDataVR:
		return encodeBulkData(syntax.byteOrder(), valueField)
	case tagVR:
		return encodeTag(syntax.byteOrder(), valueField)
	default:
		return nil, fmt.Errorf("unknown vr kind found: %v", vr.kind)
	}
}

func encodeText(paddingByte byte, v interface{}) ([]byte, error) {
	var b string
	switch field := v.(type) {
	case []string:
		b = strings.Join(field, "\\")
	case []byte:
		b = string(field)
	case nil:
	default:
		return nil, fmt.Errorf("expected type []string got %T", v)
	}

	return padEven([]byte(b), paddingByte), nil
}

func encodeNumberBinary(order binary.ByteOrder, v interface{}) ([]byte, error) {
	switch field := v.(type) {
	case []int16, []uint16, []int32, []uint32, []float32, []float64:
		var buf bytes.Buffer
		if err := binary.Write(&buf, order, v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported binary number type: %T", field)
	}
}

func encodeBulkData(order binary.ByteOrder, v interface{}) ([]byte, error) {
	switch field := v.(type) {
	case []byte:
		return padEven(field, 0x00), nil
	case []string:
		return encodeText(' ', field)
	case nil:
		return []byte{}, nil
	default:
		return encodeNumberBinary(order, v)
	}
}

func encodeTag(order binary.ByteOrder, valueField interface{}) ([]byte, error) {
	tags, ok := valueField.([]uint32)
	if !ok {
		return nil, fmt.Errorf("unexpected type for tag VR: %T (expected []uint32)", valueField)
	}
	var buf bytes.Buffer
	dw := newDcmWriter(&buf)
	for _, t := range tags {
		if err := dw.Tag(order, DataElementTag(t)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writeSequenceElement writes sequences with undefined length when the element was read that
// way and with explicit length otherwise. Items keep their own length convention.
func writeSequenceElement(dw *dcmWriter, syntax transferSyntax, tag DataElementTag, vr *VR, element *DataElement) error {
	seq, ok := element.ValueField.(*Sequence)
	if !ok {
		return fmt.Errorf("unknown sequence type found: %T (expected *Sequence)", element.ValueField)
	}

	var body bytes.Buffer
	if err := writeSequenceItems(newDcmWriter(&body), syntax, seq); err != nil {
		return fmt.Errorf("writing sequence %v: %v", tag, err)
	}

	if element.ValueLength == UndefinedLength {
		if err := writeElementHeader(dw, syntax, tag, vr, UndefinedLength); err != nil {
			return err
		}
		if err := dw.Bytes(body.Bytes()); err != nil {
			return err
		}
		return dw.Delimiter(syntax.byteOrder(), SequenceDelimitationItemTag)
	}

	if uint64(body.Len()) >= math.MaxUint32 {
		return fmt.Errorf("sequence %v too long for explicit length", tag)
	}
	if err := writeElementHeader(dw, syntax, tag, vr, uint32(body.Len())); err != nil {
		return err
	}
	return dw.Bytes(body.Bytes())
}

func writeSequenceItems(dw *dcmWriter, syntax transferSyntax, seq *Sequence) error {
	order := syntax.byteOrder()
	for _, item := range seq.Items {
		var itemBody bytes.Buffer
		if err := writeDataSet(newDcmWriter(&itemBody), syntax, item); err != nil {
			return fmt.Errorf("writing sequence item: %v", err)
		}

		if err := dw.Tag(order, ItemTag); err != nil {
			return fmt.Errorf("writing item tag: %v", err)
		}
		if item.Length == UndefinedLength {
			if err := dw.UInt32(order, UndefinedLength); err != nil {
				return fmt.Errorf("writing item length: %v", err)
			}
			if err := dw.Bytes(itemBody.Bytes()); err != nil {
				return err
			}
			if err := dw.Delimiter(order, ItemDelimitationItemTag); err != nil {
				return fmt.Errorf("writing item delimitation item: %v", err)
			}
			continue
		}

		if err := dw.UInt32(order, uint32(itemBody.Len())); err != nil {
			return fmt.Errorf("writing item length: %v", err)
		}
		if err := dw.Bytes(itemBody.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeDataSet(dw *dcmWriter, syntax transferSyntax, ds *DataSet) error {
	for _, element := range ds.SortedElements() {
		if err := writeDataElement(dw, syntax, element); err != nil {
			return fmt.Errorf("writing data element: %v", err)
		}
	}
	return nil
}
