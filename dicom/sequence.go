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
	"strings"
)

// Sequence models a DICOM sequence
type Sequence struct {
	Items []*DataSet
}

func (seq *Sequence) String() string {
	return seq.string(0)
}

func (seq *Sequence) string(indentLvl int) string {
	lines := make([]string, 0)
	for _, obj := range seq.Items {
		lines = append(lines, obj.string(indentLvl+1))
	}
	return "\n" + strings.Join(lines, "\n")
}

func (seq *Sequence) append(dataSet *DataSet) {
	seq.Items = append(seq.Items, dataSet)
}

// readSequence buffers the items of a sequence. Sequences of explicit length are bounded by a
// limited reader, sequences of undefined length end at the Sequence Delimitation Item.
func readSequence(dr *dcmReader, length uint32, syntax transferSyntax) (*Sequence, error) {
	undefined := length == UndefinedLength
	if !undefined {
		dr = dr.Limit(int64(length))
	}

	seq := &Sequence{[]*DataSet{}}
	for {
		tag, err := processItemTag(dr, syntax.byteOrder())
		if err == io.EOF {
			if undefined {
				return nil, fmt.Errorf("unexpected EOF in undefined sequence")
			}
			return seq, nil
		}
		if err != nil {
			return nil, err
		}

		itemLength, err := dr.UInt32(syntax.byteOrder())
		if err != nil {
			return nil, fmt.Errorf("reading sequence item length: %v", err)
		}

		if tag == SequenceDelimitationItemTag {
			if !undefined {
				return nil, fmt.Errorf("unexpected sequence delimitation item tag in explicit length sequence")
			}
			if itemLength != 0 {
				return nil, fmt.Errorf("expected 0 length on sequence delimiter length")
			}
			return seq, nil
		}

		item, err := readSequenceItem(dr, itemLength, syntax)
		if err != nil {
			return nil, fmt.Errorf("reading sequence item %d: %v", len(seq.Items), err)
		}
		seq.append(item)
	}
}

func readSequenceItem(dr *dcmReader, length uint32, syntax transferSyntax) (*DataSet, error) {
	if length != UndefinedLength {
		dr = dr.Limit(int64(length))
	}

	item := &DataSet{Elements: map[DataElementTag]*DataElement{}, Length: length}
	for elem, err := readDataElement(dr, syntax); err != io.EOF; elem, err = readDataElement(dr, syntax) {
		if err != nil {
			return nil, err
		}
		item.Elements[elem.Tag] = elem
	}
	return item, nil
}

func processItemTag(dr *dcmReader, order binary.ByteOrder) (DataElementTag, error) {
	tag, err := dr.Tag(order)
	if err == io.EOF {
		return tag, io.EOF
	}
	if err != nil {
		return tag, fmt.Errorf("unexpected error reading item tag: %v", err)
	}
	if tag != ItemTag && tag != SequenceDelimitationItemTag {
		return tag, fmt.Errorf("invalid item tag in sequence, got %08X want %08X or %08X",
			uint32(tag), uint32(ItemTag), uint32(SequenceDelimitationItemTag))
	}

	return tag, nil
}
