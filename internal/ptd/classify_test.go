package ptd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		word Word
		want Class
	}{
		{"zero time tag", 0x80000000, Class{Tag: true, TimeMarker: true}},
		{"ten second time tag", 0x80002710, Class{Tag: true, TimeMarker: true, Millis: 10000}},
		{"time tag with high millisecond bits", 0x90000003, Class{Tag: true, TimeMarker: true, Millis: 0x10000003}},
		{"gantry tag", 0xA0000005, Class{Tag: true}},
		{"tag with prompt bit", 0xC0000001, Class{Tag: true}},
		{"control tag", 0xE0000000, Class{Tag: true}},
		{"prompt", 0x40000001, Class{Prompt: true}},
		{"delay", 0x00000002, Class{}},
		{"delay with high bits", 0x3FFFFFFF, Class{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.word))
		})
	}
}

func TestClassElapsed(t *testing.T) {
	assert.Equal(t, 10*time.Second, Classify(0x80002710).Elapsed())
	assert.Equal(t, time.Duration(0), Classify(0x40000001).Elapsed())
}

func TestCheckWordFormat(t *testing.T) {
	require.NoError(t, CheckWordFormat(32))

	err := CheckWordFormat(64)
	require.ErrorIs(t, err, ErrUnsupportedEncoding)

	var ptdErr *Error
	require.ErrorAs(t, err, &ptdErr)
	assert.Equal(t, "32", ptdErr.Expected)
	assert.Equal(t, "64", ptdErr.Found)
}
