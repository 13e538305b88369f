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
	"reflect"
	"testing"
)

const (
	privateCreatorTag DataElementTag = 0x00290010
	privateTextTag    DataElementTag = 0x00291010
)

var privateText = []byte("%LM event and tag words format (bits):=32\n" +
	"tracer activity at time of injection (Bq):=3.961e+08\r\n")

// listModeHeader builds the kind of header found in a PET list-mode container
func listModeHeader(syntaxUID string) *DataSet {
	doseItem := NewDataSet(map[DataElementTag]interface{}{
		RadionuclideTotalDoseTag: []string{"396100000"},
		RadiopharmaceuticalTag:   []string{"Fluorodeoxyglucose"},
	})
	return NewDataSet(map[DataElementTag]interface{}{
		MediaStorageSOPClassUIDTag:                []string{"1.3.12.2.1107.5.9.1"},
		TransferSyntaxUIDTag:                      []string{syntaxUID},
		PatientNameTag:                            []string{"Doe^John"},
		ModalityTag:                               []string{"PT"},
		privateCreatorTag:                         []string{"SIEMENS MI RAW"},
		privateTextTag:                            privateText,
		RadiopharmaceuticalInformationSequenceTag: &Sequence{Items: []*DataSet{doseItem}},
	})
}

func dcmReaderFromBytes(data []byte) *dcmReader {
	return newDcmReader(bytes.NewReader(data))
}

func mustConstruct(t *testing.T, ds *DataSet) []byte {
	t.Helper()
	b, err := ConstructBytes(ds)
	if err != nil {
		t.Fatalf("ConstructBytes(_) => %v", err)
	}
	return b
}

// compareDataSets checks that every element of want is in got with the same VR and value. got
// may hold extra elements.
func compareDataSets(t *testing.T, got *DataSet, want *DataSet) {
	t.Helper()
	for tag, w := range want.Elements {
		g, ok := got.Elements[tag]
		if !ok {
			t.Fatalf("expected element %v in data set", tag)
		}
		compareDataElements(t, g, w)
	}
}

func compareDataElements(t *testing.T, got *DataElement, want *DataElement) {
	t.Helper()
	if got.Tag != want.Tag {
		t.Fatalf("expected tags to be equal: got %v, want %v", got.Tag, want.Tag)
	}
	if got.VR != want.VR {
		t.Fatalf("expected VRs of %v to be equal: got %v, want %v", got.Tag, got.VR, want.VR)
	}

	if want.VR != SQVR {
		if !reflect.DeepEqual(got.ValueField, want.ValueField) {
			t.Fatalf("expected ValueFields of %v to be equal: got %v, want %v",
				got.Tag, got.ValueField, want.ValueField)
		}
		return
	}

	gotSeq, wantSeq := got.ValueField.(*Sequence), want.ValueField.(*Sequence)
	if len(gotSeq.Items) != len(wantSeq.Items) {
		t.Fatalf("expected sequences to have same length: got %v, want %v",
			len(gotSeq.Items), len(wantSeq.Items))
	}
	for i := range gotSeq.Items {
		compareDataSets(t, gotSeq.Items[i], wantSeq.Items[i])
	}
}
