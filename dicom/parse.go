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
	"fmt"
	"io"
)

// Parse parses a DICOM file represented as an io.Reader, returning the DataSet defined by applying
// options sequentially in the order given to DataElements in the file. File meta elements are
// included in the returned DataSet.
func Parse(r io.Reader, opts ...ParseOption) (*DataSet, error) {
	iter, err := NewDataElementIterator(r)
	if err != nil {
		return nil, fmt.Errorf("creating new data element iterator: %v", err)
	}
	defer iter.Close()

	return CollectDataElements(iter, opts...)
}

// ParseBytes is Parse over an in-memory DICOM file
func ParseBytes(b []byte, opts ...ParseOption) (*DataSet, error) {
	return Parse(bytes.NewReader(b), opts...)
}

// CollectDataElements returns the DataSet defined by the elements in the DataElementIterator.
// The options will be applied in the order given.
func CollectDataElements(iter DataElementIterator, opts ...ParseOption) (*DataSet, error) {
	ds := &DataSet{Elements: map[DataElementTag]*DataElement{}, Length: UndefinedLength}

	for elem, err := iter.NextElement(); err != io.EOF; elem, err = iter.NextElement() {
		if err != nil {
			return nil, err
		}
		processedElement, err := processElement(elem, opts...)
		if err != nil {
			return nil, err
		}
		if processedElement != nil { // nil check to test if ParseOption wants to filter out element
			ds.Elements[elem.Tag] = processedElement
		}
	}
	return ds, nil
}

func processElement(element *DataElement, opts ...ParseOption) (*DataElement, error) {
	if seq, ok := element.ValueField.(*Sequence); ok {
		// for sequence elements, apply options in post-order. (i.e process sequence items before
		// the sequence element)
		for _, item := range seq.Items {
			for tag, itemElem := range item.Elements {
				processed, err := processElement(itemElem, opts...)
				if err != nil {
					return nil, fmt.Errorf("processing sequence item element: %v", err)
				}
				if processed == nil {
					delete(item.Elements, tag)
					continue
				}
				item.Elements[tag] = processed
			}
		}
	}

	return applyOptions(element, opts...)
}

func applyOptions(element *DataElement, opts ...ParseOption) (*DataElement, error) {
	var err error
	for i, opt := range opts {
		element, err = opt.transform(element)
		if err != nil {
			return nil, fmt.Errorf("applying option %v: %v", i, err)
		}
		if element == nil { // option wants to filter this element out
			return nil, nil
		}
	}
	return element, nil
}
