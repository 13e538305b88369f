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
	"errors"
	"fmt"
	"io"
)

const (
	preambleSize = 128
	signature    = "DICM"
)

// DataElementIterator represents an iterator over a DataSet's DataElements
type DataElementIterator interface {
	// NextElement returns the next DataElement in the DataSet. If there is no next DataElement, the
	// error io.EOF is returned. File meta elements are returned first.
	NextElement() (*DataElement, error)

	// Close discards all remaining DataElements in the iterator
	Close() error
}

// NewDataElementIterator creates a DataElementIterator from a DICOM file. The implementation
// returned will consume input from the io.Reader given as needed.
func NewDataElementIterator(r io.Reader) (DataElementIterator, error) {
	dr := newDcmReader(r)
	if err := readDicomSignature(dr); err != nil {
		return nil, err
	}

	metaHeaderBytes, err := bufferMetadataHeader(dr)
	if err != nil {
		return nil, fmt.Errorf("reading meta header: %v", err)
	}

	syntax, err := findSyntax(metaHeaderBytes)
	if err != nil {
		return nil, fmt.Errorf("finding transfer syntax: %v", err)
	}
	if syntax.isDeflated() {
		return nil, errors.New("reading the deflated explicit VR little endian syntax is not supported")
	}

	metaIter := newDataElementIterator(newDcmReader(bytes.NewReader(metaHeaderBytes)), defaultMetaData)

	metadata := dicomMetaData{syntax, defaultCharacterRepertoire}
	return &dataElementIterator{dr, metadata, false, metaIter}, nil
}

// newDataElementIterator creates a DataElementIterator from a byte stream that excludes header info
// (preamble and metadata elements)
func newDataElementIterator(r *dcmReader, metaData dicomMetaData) DataElementIterator {
	return &dataElementIterator{r, metaData, false, emptyElementIterator{}}
}

type dataElementIterator struct {
	dr         *dcmReader
	meta       dicomMetaData
	empty      bool
	metaHeader DataElementIterator
}

func (it *dataElementIterator) NextElement() (*DataElement, error) {
	metaElem, err := it.metaHeader.NextElement()
	if err == io.EOF {
		return it.nextDataSetElement()
	}
	if err != nil {
		return nil, err
	}
	return metaElem, nil
}

func (it *dataElementIterator) nextDataSetElement() (*DataElement, error) {
	if it.empty {
		return nil, io.EOF
	}

	element, err := readDataElement(it.dr, it.meta.syntax)
	if err == io.EOF {
		it.empty = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("parsing element at offset %d: %v", it.dr.BytesRead(), err)
	}

	if element.Tag == SpecificCharacterSetTag {
		it.meta = it.meta.withCharacterSet(element)
	}
	return element, nil
}

func (it *dataElementIterator) Close() error {
	// empty the iterator
	for _, err := it.NextElement(); err != io.EOF; _, err = it.NextElement() {
		if err != nil {
			return fmt.Errorf("unexpected error closing iterator: %v", err)
		}
	}
	return nil
}

func readDicomSignature(r *dcmReader) error {
	if err := r.Skip(preambleSize); err != nil {
		return fmt.Errorf("skipping preamble: %v", err)
	}

	magic, err := r.String(int64(len(signature)))
	if err != nil {
		return fmt.Errorf("reading DICOM signature: %v", err)
	}

	if magic != signature {
		return fmt.Errorf("wrong DICOM signature: %q", magic)
	}

	return nil
}

func bufferMetadataHeader(dr *dcmReader) ([]byte, error) {
	firstElemBytes, err := dr.Bytes(4 /*tag*/ + 2 /*vr*/ + 2 /*len*/ + 4 /*UL=4bytes*/)
	if err != nil {
		return nil, fmt.Errorf("buffering bytes of FileMetaInformationGroupLength: %v", err)
	}
	firstElem, err := readDataElement(newDcmReader(bytes.NewReader(firstElemBytes)), explicitVRLittleEndian)
	if err != nil {
		return nil, fmt.Errorf("parsing FileMetaInformationGroupLength element: %v", err)
	}
	if firstElem.Tag != FileMetaInformationGroupLengthTag {
		return nil, fmt.Errorf("expected FileMetaInformationGroupLength first, got %v", firstElem.Tag)
	}
	if metaGroupLength, ok := firstElem.ValueField.([]uint32); ok {
		if len(metaGroupLength) != 1 {
			return nil, fmt.Errorf("expected 1 value for meta group lengths")
		}
		remainderBytes, err := dr.Bytes(int64(metaGroupLength[0]))
		if err != nil {
			return nil, fmt.Errorf("buffering the file meta elements: %v", err)
		}

		return append(firstElemBytes, remainderBytes...), nil
	}

	return nil, fmt.Errorf("wrong type for FileMetaInformationGroupLength. Got %v, want []uint32", firstElem.ValueField)
}

func findSyntax(metaHeaderBytes []byte) (transferSyntax, error) {
	metaIter := newDataElementIterator(newDcmReader(bytes.NewReader(metaHeaderBytes)), defaultMetaData)

	for elem, err := metaIter.NextElement(); err != io.EOF; elem, err = metaIter.NextElement() {
		if err != nil {
			return nil, fmt.Errorf("reading meta element: %v", err)
		}
		if elem.Tag == TransferSyntaxUIDTag {
			return findSyntaxFromElement(elem)
		}
	}

	return nil, fmt.Errorf("transfer syntax not found")
}

func findSyntaxFromElement(element *DataElement) (transferSyntax, error) {
	ids, ok := element.ValueField.([]string)
	if !ok {
		return nil, fmt.Errorf("expected type []string for transfer syntax element")
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("expected 1 value length for transfer syntax")
	}

	return lookupTransferSyntax(ids[0]), nil
}

type emptyElementIterator struct{}

func (it emptyElementIterator) NextElement() (*DataElement, error) {
	return nil, io.EOF
}

func (it emptyElementIterator) Close() error {
	return nil
}
