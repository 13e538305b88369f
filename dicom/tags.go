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

// Subset of the data dictionary in
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html
// covering the file meta group, the item delimiters and the attributes found in the headers
// embedded in PET list-mode containers.
const (
	FileMetaInformationGroupLengthTag DataElementTag = 0x00020000
	FileMetaInformationVersionTag     DataElementTag = 0x00020001
	MediaStorageSOPClassUIDTag        DataElementTag = 0x00020002
	MediaStorageSOPInstanceUIDTag     DataElementTag = 0x00020003
	TransferSyntaxUIDTag              DataElementTag = 0x00020010
	ImplementationClassUIDTag         DataElementTag = 0x00020012
	ImplementationVersionNameTag      DataElementTag = 0x00020013
	SourceApplicationEntityTitleTag   DataElementTag = 0x00020016

	SpecificCharacterSetTag DataElementTag = 0x00080005
	ImageTypeTag            DataElementTag = 0x00080008
	SOPClassUIDTag          DataElementTag = 0x00080016
	SOPInstanceUIDTag       DataElementTag = 0x00080018
	StudyDateTag            DataElementTag = 0x00080020
	SeriesDateTag           DataElementTag = 0x00080021
	AcquisitionDateTag      DataElementTag = 0x00080022
	StudyTimeTag            DataElementTag = 0x00080030
	AcquisitionTimeTag      DataElementTag = 0x00080032
	ModalityTag             DataElementTag = 0x00080060
	ManufacturerTag         DataElementTag = 0x00080070
	StudyDescriptionTag     DataElementTag = 0x00081030
	SeriesDescriptionTag    DataElementTag = 0x0008103E
	ManufacturerModelTag    DataElementTag = 0x00081090

	PatientNameTag      DataElementTag = 0x00100010
	PatientIDTag        DataElementTag = 0x00100020
	PatientBirthDateTag DataElementTag = 0x00100030
	PatientSexTag       DataElementTag = 0x00100040
	PatientAgeTag       DataElementTag = 0x00101010
	PatientSizeTag      DataElementTag = 0x00101020
	PatientWeightTag    DataElementTag = 0x00101030

	RadiopharmaceuticalTag                    DataElementTag = 0x00180031
	SoftwareVersionsTag                       DataElementTag = 0x00181020
	RadiopharmaceuticalStartTimeTag           DataElementTag = 0x00181072
	RadionuclideTotalDoseTag                  DataElementTag = 0x00181074
	RadionuclideHalfLifeTag                   DataElementTag = 0x00181075
	StudyInstanceUIDTag                       DataElementTag = 0x0020000D
	SeriesInstanceUIDTag                      DataElementTag = 0x0020000E
	StudyIDTag                                DataElementTag = 0x00200010
	SeriesNumberTag                           DataElementTag = 0x00200011
	RadiopharmaceuticalInformationSequenceTag DataElementTag = 0x00540016

	ItemTag                     DataElementTag = 0xFFFEE000
	ItemDelimitationItemTag     DataElementTag = 0xFFFEE00D
	SequenceDelimitationItemTag DataElementTag = 0xFFFEE0DD
)

var dictionary = map[DataElementTag]*VR{
	FileMetaInformationGroupLengthTag: ULVR,
	FileMetaInformationVersionTag:     OBVR,
	MediaStorageSOPClassUIDTag:        UIVR,
	MediaStorageSOPInstanceUIDTag:     UIVR,
	TransferSyntaxUIDTag:              UIVR,
	ImplementationClassUIDTag:         UIVR,
	ImplementationVersionNameTag:      SHVR,
	SourceApplicationEntityTitleTag:   AEVR,

	SpecificCharacterSetTag: CSVR,
	ImageTypeTag:            CSVR,
	SOPClassUIDTag:          UIVR,
	SOPInstanceUIDTag:       UIVR,
	StudyDateTag:            DAVR,
	SeriesDateTag:           DAVR,
	AcquisitionDateTag:      DAVR,
	StudyTimeTag:            TMVR,
	AcquisitionTimeTag:      TMVR,
	ModalityTag:             CSVR,
	ManufacturerTag:         LOVR,
	StudyDescriptionTag:     LOVR,
	SeriesDescriptionTag:    LOVR,
	ManufacturerModelTag:    LOVR,

	PatientNameTag:      PNVR,
	PatientIDTag:        LOVR,
	PatientBirthDateTag: DAVR,
	PatientSexTag:       CSVR,
	PatientAgeTag:       ASVR,
	PatientSizeTag:      DSVR,
	PatientWeightTag:    DSVR,

	RadiopharmaceuticalTag:                    LOVR,
	SoftwareVersionsTag:                       LOVR,
	RadiopharmaceuticalStartTimeTag:           TMVR,
	RadionuclideTotalDoseTag:                  DSVR,
	RadionuclideHalfLifeTag:                   DSVR,
	StudyInstanceUIDTag:                       UIVR,
	SeriesInstanceUIDTag:                      UIVR,
	StudyIDTag:                                SHVR,
	SeriesNumberTag:                           ISVR,
	RadiopharmaceuticalInformationSequenceTag: SQVR,
}

// DictionaryVR returns the VR of the tag in the data dictionary. Group lengths are UL, private
// creator elements are LO and anything else not in the dictionary is UN.
func (t DataElementTag) DictionaryVR() *VR {
	if vr, ok := dictionary[t]; ok {
		return vr
	}
	if t.ElementNumber() == 0x0000 {
		return ULVR
	}
	if t.IsPrivate() && t.ElementNumber() >= 0x0010 && t.ElementNumber() <= 0x00FF {
		return LOVR
	}
	return UNVR
}
