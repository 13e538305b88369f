// Package dicom provides functions and data structures for reading and writing the DICOM Part 10
// file format. It is sized for the header objects embedded in PET list-mode containers: the whole
// object is buffered into memory as a DataSet, edited, and written back out.
//
// Parse and ParseBytes read a DICOM file into a DataSet. ParseOptions filter or rewrite elements
// as they are read. The DataElementIterator is the streaming form underneath Parse and yields
// elements one at a time, file meta elements first.
//
// Construct writes a DataSet back out in the transfer syntax named by its (0002,0010) element.
// Value lengths and the file meta group length are recalculated on write. Sequences and items
// keep the explicit or undefined length encoding they were read with.
//
// Private elements not found in the data dictionary are read as raw bytes (UN) in the implicit
// syntaxes and with their declared VR in the explicit ones.
package dicom
