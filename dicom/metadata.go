package dicom

import "golang.org/x/text/encoding"

// dicomMetaData represents information about how objects within the DICOM file are stored
type dicomMetaData struct {
	syntax   transferSyntax
	encoding encoding.Encoding
}

var defaultMetaData = dicomMetaData{explicitVRLittleEndian, defaultCharacterRepertoire}

// withCharacterSet returns the metadata with the encoding named by a Specific Character Set
// element. Unknown terms keep the current encoding.
func (m dicomMetaData) withCharacterSet(elem *DataElement) dicomMetaData {
	term, err := elem.StringValue()
	if err != nil || term == "" {
		return m
	}
	if coding, err := lookupEncoding(term); err == nil {
		m.encoding = coding
	}
	return m
}
