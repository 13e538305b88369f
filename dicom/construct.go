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

// Construct writes the given *DataSet as a DICOM file to the given io.Writer. The desired output
// transfer syntax is specified as a required TransferSyntax DataElement (0002,0010). By default,
// there is no validation against the DICOM standard of any form.
//
// If a *DataElement in the *DataSet is missing VR it will be filled in from the
// DICOM Data Dictionary. The ValueLength of DataElements are ignored and re-calculated, except
// for sequences where UndefinedLength selects the delimited encoding.
func Construct(w io.Writer, dataSet *DataSet) error {
	dw := newDcmWriter(w)

	syntax, err := findSyntaxFromDataSet(dataSet)
	if err != nil {
		return fmt.Errorf("getting transfer syntax from data set: %v", err)
	}
	if syntax.isDeflated() {
		return fmt.Errorf("writing in the deflated syntax is not supported yet")
	}

	// File meta elements are always in explicit VR little endian as specified in the standard
	// http://dicom.nema.org/medical/dicom/current/output/html/part10.html#sect_7.1
	var meta bytes.Buffer
	metaWriter := newDcmWriter(&meta)
	var body bytes.Buffer
	bodyWriter := newDcmWriter(&body)
	for _, element := range dataSet.SortedElements() {
		if element.Tag == FileMetaInformationGroupLengthTag {
			continue
		}
		if element.Tag.IsMetaElement() {
			if err := writeDataElement(metaWriter, explicitVRLittleEndian, element); err != nil {
				return fmt.Errorf("writing file meta element: %v", err)
			}
			continue
		}
		if err := writeDataElement(bodyWriter, syntax, element); err != nil {
			return fmt.Errorf("writing data element at offset %d: %v", bodyWriter.BytesWritten(), err)
		}
	}

	if err := writeDicomSignature(dw); err != nil {
		return err
	}

	// The FileMetaInformationGroupLength element is a critical component of the Meta Header. It
	// stores how long the meta header is. Thus, we need to re-calculate it properly.
	groupLength := &DataElement{
		Tag:        FileMetaInformationGroupLengthTag,
		VR:         ULVR,
		ValueField: []uint32{uint32(meta.Len())},
	}
	if err := writeDataElement(dw, explicitVRLittleEndian, groupLength); err != nil {
		return fmt.Errorf("writing meta group length: %v", err)
	}
	if err := dw.Bytes(meta.Bytes()); err != nil {
		return fmt.Errorf("writing file meta elements: %v", err)
	}
	if err := dw.Bytes(body.Bytes()); err != nil {
		return fmt.Errorf("writing data set: %v", err)
	}
	return nil
}

// ConstructBytes is Construct into memory
func ConstructBytes(dataSet *DataSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Construct(&buf, dataSet); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findSyntaxFromDataSet(dataSet *DataSet) (transferSyntax, error) {
	syntaxElement, ok := dataSet.Elements[TransferSyntaxUIDTag]
	if !ok {
		return nil, fmt.Errorf("transfer syntax element is missing from data set")
	}

	syntaxUID, err := syntaxElement.StringValue()
	if err != nil {
		return nil, fmt.Errorf("transfer syntax element cannot be converted to string: %v", err)
	}

	return lookupTransferSyntax(syntaxUID), nil
}

func writeDicomSignature(dw *dcmWriter) error {
	if err := dw.Bytes(make([]byte, preambleSize)); err != nil {
		return fmt.Errorf("writing DICOM preamble: %v", err)
	}

	if err := dw.String(signature); err != nil {
		return fmt.Errorf("writing DICOM signature: %v", err)
	}

	return nil
}
