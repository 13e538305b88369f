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
	"errors"
	"testing"
)

func TestDropGroupLengths(t *testing.T) {
	ds, err := ParseBytes(mustConstruct(t, listModeHeader(ExplicitVRLittleEndianUID)), DropGroupLengths)
	if err != nil {
		t.Fatalf("ParseBytes(_, DropGroupLengths) => %v", err)
	}
	for tag := range ds.Elements {
		if tag.ElementNumber() == 0 {
			t.Fatalf("expected group length %v to be dropped", tag)
		}
	}
}

func TestOnlyTags(t *testing.T) {
	ds, err := ParseBytes(mustConstruct(t, listModeHeader(ImplicitVRLittleEndianUID)),
		OnlyTags(PatientNameTag, RadiopharmaceuticalInformationSequenceTag, RadionuclideTotalDoseTag))
	if err != nil {
		t.Fatalf("ParseBytes(_, OnlyTags(_)) => %v", err)
	}

	for _, tag := range []DataElementTag{PatientNameTag, TransferSyntaxUIDTag, RadiopharmaceuticalInformationSequenceTag} {
		if _, ok := ds.Elements[tag]; !ok {
			t.Fatalf("expected %v to be kept", tag)
		}
	}
	for _, tag := range []DataElementTag{ModalityTag, privateTextTag} {
		if _, ok := ds.Elements[tag]; ok {
			t.Fatalf("expected %v to be dropped", tag)
		}
	}

	item := ds.Elements[RadiopharmaceuticalInformationSequenceTag].ValueField.(*Sequence).Items[0]
	if len(item.Elements) != 1 {
		t.Fatalf("expected only the dose in the sequence item, got %v", item)
	}
}

func TestWithTransform_Error(t *testing.T) {
	failing := WithTransform(func(*DataElement) (*DataElement, error) {
		return nil, errors.New("rejected")
	})
	if _, err := ParseBytes(mustConstruct(t, listModeHeader(ExplicitVRLittleEndianUID)), failing); err == nil {
		t.Fatalf("ParseBytes(_, failing) => nil, want error")
	}
}
