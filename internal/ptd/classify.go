package ptd

import (
	"strconv"
	"time"
)

const (
	tagBit       Word = 0x80000000
	promptBit    Word = 0x40000000
	timeTagMask  Word = 0xE
	timeTagValue Word = 0x8
	millisMask   Word = 0x1FFFFFFF
)

// Class is the decoded meaning of a word. Tag words may be elapsed time markers; event words
// are prompts or delays.
type Class struct {
	Tag        bool
	TimeMarker bool
	Millis     uint32
	Prompt     bool
}

// Classify decodes a 32-bit word:
//
//	bit 31 set                 tag word
//	(w>>28)&0xE == 0x8         elapsed time tag, low 29 bits are milliseconds
//	bit 31 clear, bit 30 set   prompt event
//	bit 31 clear, bit 30 clear delay event
func Classify(w Word) Class {
	if w&tagBit != 0 {
		if (w>>28)&timeTagMask == timeTagValue {
			return Class{Tag: true, TimeMarker: true, Millis: uint32(w & millisMask)}
		}
		return Class{Tag: true}
	}
	return Class{Prompt: w&promptBit != 0}
}

// Elapsed is the time marker as a duration.
func (c Class) Elapsed() time.Duration {
	return time.Duration(c.Millis) * time.Millisecond
}

// CheckWordFormat accepts the 32-bit word format only.
func CheckWordFormat(bits int) error {
	if bits != 32 {
		return newError(CodeUnsupportedEncoding, "word format", "32", strconv.Itoa(bits))
	}
	return nil
}
