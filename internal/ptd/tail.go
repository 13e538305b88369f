package ptd

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// minLineLength is the length a recovered line must exceed to be kept.
const minLineLength = 3

var xmlFieldPattern = regexp.MustCompile(`<([^<>/][^<>]*)>([^<]*)</`)

// TailOptions configures ScanTail.
type TailOptions struct {
	// StopToken ends the scan once a recovered line contains it.
	StopToken string

	// Strict additionally requires the stop line to contain Delimiter.
	Strict bool

	// Delimiter must appear in the stop line under Strict. Fields are always parsed as KEY:=VALUE.
	Delimiter string

	// ReturnFull returns every field even when the stop token was recovered as a key.
	ReturnFull bool

	// BufferSize is the backward read size. 1 reads a byte at a time.
	BufferSize int
}

// DefaultTailOptions stops at the DICOM signature with ":=" as the strict delimiter.
func DefaultTailOptions() TailOptions {
	return TailOptions{
		StopToken:  "DICM",
		Delimiter:  textDelimiter,
		BufferSize: DefaultBufferSize,
	}
}

// TailRecord holds the fields recovered from the tail of a file.
type TailRecord struct {
	Fields    map[string]string `json:"fields"`
	Lines     []string          `json:"lines,omitempty"`
	Value     string            `json:"value,omitempty"`
	Single    bool              `json:"single"`
	BytesRead int64             `json:"bytes_read"`
}

// ScanTail reads backward from the end of r, recovering printable lines until one contains the
// stop token, then parses them as XML-style elements and as key/value pairs. Key/value matches
// overwrite XML matches of the same key. Content that parses under neither pattern is skipped.
func ScanTail(r io.ReaderAt, size int64, opts TailOptions) (*TailRecord, error) {
	if opts.Delimiter == "" {
		opts.Delimiter = textDelimiter
	}
	if opts.BufferSize < 1 {
		opts.BufferSize = DefaultBufferSize
	}

	scanner := newLineScanner(r, size, opts.BufferSize)
	var lines []string
	for {
		raw, ok, err := scanner.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(raw) > minLineLength {
			lines = append(lines, strings.TrimSpace(raw))
		}
		if opts.stopsAt(raw) {
			break
		}
	}

	record := &TailRecord{
		Fields:    map[string]string{},
		Lines:     lines,
		BytesRead: scanner.bytesRead,
	}
	for _, line := range lines {
		if k, v, ok := parseXMLLine(line); ok {
			record.Fields[k] = v
		}
	}
	for _, line := range lines {
		if k, v, ok := parseKeyValueLine(line); ok {
			record.Fields[k] = v
		}
	}

	if v, ok := record.Fields[opts.StopToken]; ok && !opts.ReturnFull {
		record.Value = v
		record.Single = true
	}
	return record, nil
}

func (o TailOptions) stopsAt(line string) bool {
	if o.StopToken == "" || !strings.Contains(line, o.StopToken) {
		return false
	}
	return !o.Strict || strings.Contains(line, o.Delimiter)
}

func parseXMLLine(line string) (key, value string, ok bool) {
	m := xmlFieldPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func parseKeyValueLine(line string) (key, value string, ok bool) {
	parts := strings.Split(line, textDelimiter)
	if len(parts) < 2 {
		return "", "", false
	}
	key = strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(parts[1]), true
}

// lineScanner yields printable lines from the end of a file toward its start, one per call.
// Bytes 32-125 form lines, control bytes end them and anything else is skipped.
type lineScanner struct {
	r         io.ReaderAt
	pos       int64 // offset of the next unread byte + 1
	buf       []byte
	bufStart  int64
	bufLen    int
	line      []byte // reversed
	bytesRead int64
}

func newLineScanner(r io.ReaderAt, size int64, bufSize int) *lineScanner {
	return &lineScanner{r: r, pos: size, buf: make([]byte, bufSize)}
}

// next returns the next line in forward byte order, or ok == false at the start of the file.
func (s *lineScanner) next() (string, bool, error) {
	for s.pos > 0 {
		b, err := s.readBackward()
		if err != nil {
			return "", false, err
		}

		switch {
		case b >= 32 && b <= 125:
			s.line = append(s.line, b)
		case b < 32 || b == 127:
			if len(s.line) > 0 {
				return s.flush(), true, nil
			}
		}
	}

	if len(s.line) > 0 {
		return s.flush(), true, nil
	}
	return "", false, nil
}

func (s *lineScanner) readBackward() (byte, error) {
	if s.pos <= s.bufStart || s.bufLen == 0 {
		start := s.pos - int64(len(s.buf))
		if start < 0 {
			start = 0
		}
		n := int(s.pos - start)
		got, err := s.r.ReadAt(s.buf[:n], start)
		s.bytesRead += int64(got)
		if got < n {
			return 0, fmt.Errorf("reading tail at offset %d: %w", start, err)
		}
		s.bufStart, s.bufLen = start, n
	}

	s.pos--
	return s.buf[s.pos-s.bufStart], nil
}

func (s *lineScanner) flush() string {
	forward := make([]byte, len(s.line))
	for i, b := range s.line {
		forward[len(s.line)-1-i] = b
	}
	s.line = s.line[:0]
	return string(forward)
}
