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

// Transform describes a transformation applied to a DataElement
type Transform func(*DataElement) (*DataElement, error)

// ParseOption configures the behavior of the Parse function.
type ParseOption struct {
	transform Transform
}

// WithTransform returns a ParseOption that applies the given transformation to each DataElement in
// the DICOM file in the order encountered. For DataElements that contain a sequence, the transform
// is applied to nested DataElements first (i.e. transform is called on DataElements in post-order).
// If the transform returns an error, Parse will stop parsing and return an error.
// If no error is returned and a non-nil DataElement is returned, this DataElement will be added to
// the returned DataSet of Parse. If a nil DataElement is returned, this DataElement will be
// excluded from the DataSet returned from Parse.
func WithTransform(t Transform) ParseOption {
	return ParseOption{t}
}

// DropGroupLengths will exclude all group length elements (gggg,0000) from the returned DataSet.
// Group lengths go stale as soon as an element of the group is edited; Construct recomputes the
// file meta group length.
var DropGroupLengths = WithTransform(func(element *DataElement) (*DataElement, error) {
	if element.Tag.ElementNumber() == 0 {
		return nil, nil
	}
	return element, nil
})

// OnlyTags keeps the DataElements whose tag is listed, along with the file meta elements
func OnlyTags(tags ...DataElementTag) ParseOption {
	keep := make(map[DataElementTag]bool, len(tags))
	for _, tag := range tags {
		keep[tag] = true
	}
	return WithTransform(func(element *DataElement) (*DataElement, error) {
		if keep[element.Tag] || element.Tag.IsMetaElement() {
			return element, nil
		}
		return nil, nil
	})
}
