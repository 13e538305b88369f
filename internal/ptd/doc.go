// Package ptd reads and rewrites PET list-mode containers. A container is a stream of 32-bit
// little-endian event and tag words followed by a DICOM header object, its length and the
// identifier LARGE_PET_LM_RAWDATA.
//
// A Session opens a container and runs one operation at a time on it. Chop keeps every tag word
// and a seeded random subset of the prompt and delay events, scaling the injected dose recorded in
// the header to match. FakeChop rewrites the dose without dropping events. Statistics counts
// prompts and delays per second of acquisition.
//
// ScanTail works on any file: it reads printable lines backward from the end until a stop token
// and parses them as key/value pairs and XML-style elements.
package ptd
