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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DataElementTag is a unique identifier for a Data Element composed of an unordered pair
// of numbers called the group number and the element number as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// The least significant 16 bits is the element number. The most significant 16 bits is the group
// number.
type DataElementTag uint32

// GroupNumber returns the group number component of the DataElementTag
func (t DataElementTag) GroupNumber() uint16 {
	return uint16(t >> 16)
}

// ElementNumber returns the element number component of the DataElementTag
func (t DataElementTag) ElementNumber() uint16 {
	return uint16(t & 0xFFFF)
}

// IsMetaElement is true if and only if the Data Element is a file meta element
func (t DataElementTag) IsMetaElement() bool {
	return t.GroupNumber() == uint16(0x0002)
}

// IsPrivate is true if and only if the group number is odd
func (t DataElementTag) IsPrivate() bool {
	return t.GroupNumber()%2 == 1
}

func (t DataElementTag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.GroupNumber(), t.ElementNumber())
}

// DataElement models a DICOM Data Element as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataElement struct {
	Tag DataElementTag

	// Value Representation
	VR *VR

	// ValueField represents the field within a Data Element that contains its value(s)
	// Can be any of of the following types:
	// []string,
	// []byte,
	// []int16,
	// []uint16,
	// []int32,
	// []uint32,
	// []float32,
	// []float64,
	// *Sequence
	ValueField interface{}

	// ValueLength is equal to the length of the ValueField in bytes.
	// Can be equal to 0xFFFFFFFF to represent an undefined length:
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
	ValueLength uint32
}

// StringValue returns the first string of a textual ValueField
func (e *DataElement) StringValue() (string, error) {
	switch v := e.ValueField.(type) {
	case []string:
		if len(v) == 0 {
			return "", fmt.Errorf("empty string value field in %v", e.Tag)
		}
		return v[0], nil
	case []byte:
		return strings.TrimRight(string(v), "\x00 "), nil
	default:
		return "", fmt.Errorf("value field of %v is %T, not text", e.Tag, e.ValueField)
	}
}

// IntValue returns the first value of a numeric ValueField as an int64
func (e *DataElement) IntValue() (int64, error) {
	switch v := e.ValueField.(type) {
	case []string:
		if len(v) == 0 {
			return 0, fmt.Errorf("empty value field in %v", e.Tag)
		}
		return strconv.ParseInt(strings.TrimSpace(v[0]), 10, 64)
	case []int16:
		if len(v) > 0 {
			return int64(v[0]), nil
		}
	case []uint16:
		if len(v) > 0 {
			return int64(v[0]), nil
		}
	case []int32:
		if len(v) > 0 {
			return int64(v[0]), nil
		}
	case []uint32:
		if len(v) > 0 {
			return int64(v[0]), nil
		}
	}
	return 0, fmt.Errorf("value field of %v cannot be read as an integer: %v", e.Tag, e.ValueField)
}

func (e *DataElement) String() string {
	return e.string(0)
}

func (e *DataElement) string(indentLvl int) string {
	indent := strings.Repeat("  ", indentLvl)
	vr := "??"
	if e.VR != nil {
		vr = e.VR.Name
	}
	switch v := e.ValueField.(type) {
	case *Sequence:
		return fmt.Sprintf("%s%v %s %s", indent, e.Tag, vr, v.string(indentLvl))
	case []byte:
		return fmt.Sprintf("%s%v %s <%d bytes>", indent, e.Tag, vr, len(v))
	default:
		return fmt.Sprintf("%s%v %s %v", indent, e.Tag, vr, v)
	}
}

// DataSet models a DICOM Data Set as defined
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataSet struct {
	// Elements is a map of DataElement tags to *DataElement
	Elements map[DataElementTag]*DataElement

	// Length is the encoded length of the data set when it is a sequence item. It is
	// UndefinedLength for items delimited by an Item Delimitation Item.
	Length uint32
}

// NewDataSet creates a DataSet from a map of tags to ValueFields. VRs are filled in from the
// data dictionary.
func NewDataSet(elements map[DataElementTag]interface{}) *DataSet {
	ds := &DataSet{Elements: map[DataElementTag]*DataElement{}}
	for tag, value := range elements {
		ds.Elements[tag] = &DataElement{tag, tag.DictionaryVR(), value, 0}
	}
	return ds
}

// SortedTags returns the tags of the DataSet in ascending order
func (ds *DataSet) SortedTags() []DataElementTag {
	tags := make([]DataElementTag, 0, len(ds.Elements))
	for tag := range ds.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SortedElements returns the DataElements of the DataSet in ascending tag order
func (ds *DataSet) SortedElements() []*DataElement {
	elements := make([]*DataElement, 0, len(ds.Elements))
	for _, tag := range ds.SortedTags() {
		elements = append(elements, ds.Elements[tag])
	}
	return elements
}

// MetaElements returns a DataSet holding only the file meta elements of ds
func (ds *DataSet) MetaElements() *DataSet {
	meta := &DataSet{Elements: map[DataElementTag]*DataElement{}}
	for tag, elem := range ds.Elements {
		if tag.IsMetaElement() {
			meta.Elements[tag] = elem
		}
	}
	return meta
}

func (ds *DataSet) String() string {
	return ds.string(0)
}

func (ds *DataSet) string(indentLvl int) string {
	lines := make([]string, 0, len(ds.Elements))
	for _, elem := range ds.SortedElements() {
		lines = append(lines, elem.string(indentLvl))
	}
	return strings.Join(lines, "\n")
}
