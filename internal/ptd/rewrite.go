package ptd

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	doseLabel     = "tracer activity"
	textDelimiter = ":="
)

var injectedDosePattern = regexp.MustCompile(`<InjectedDose>([^<]*)</InjectedDose>`)

// HeaderCodec decodes a metadata blob into a Header.
type HeaderCodec interface {
	Decode(blob []byte) (Header, error)
}

// Header is a decoded metadata blob exposing its private free text.
type Header interface {
	// PrivateText returns the free-text attribute, or nil when the blob has none.
	PrivateText() []byte

	// SetPrivateText replaces the free-text attribute.
	SetPrivateText(text []byte)

	// Encode serializes the header. The length may differ from the decoded blob.
	Encode() ([]byte, error)
}

// RewriteOptions configures RewriteDose. The zero value enforces fixed widths on both dose
// encodings.
type RewriteOptions struct {
	// AllowWidthChange renders the free-text dose as %.3e, letting its line change length. The
	// XML element is always fixed width.
	AllowWidthChange bool
}

// DoseReport describes a dose rewrite.
type DoseReport struct {
	Original      float64 `json:"original_bq"`
	Retained      float64 `json:"retained_bq"`
	FreeTextFound bool    `json:"free_text_found"`
	XMLFields     int     `json:"xml_fields"`
	OldLength     int     `json:"old_length"`
	NewLength     int     `json:"new_length"`
}

// RewriteDose scales the injected dose of a metadata blob by fraction. The free-text line is
// rewritten through the codec, then every <InjectedDose> element of the re-encoded blob is
// rewritten in place at the same width.
func RewriteDose(blob []byte, fraction float64, codec HeaderCodec, opts RewriteOptions) ([]byte, DoseReport, error) {
	report := DoseReport{OldLength: len(blob)}

	header, err := codec.Decode(blob)
	if err != nil {
		return nil, report, fmt.Errorf("decoding metadata: %w", err)
	}

	out := blob
	if text := header.PrivateText(); text != nil {
		newText, original, found, err := rewriteFreeText(text, fraction, opts)
		if err != nil {
			return nil, report, err
		}
		if found {
			report.FreeTextFound = true
			report.Original = original
			report.Retained = original * fraction

			header.SetPrivateText(newText)
			if out, err = header.Encode(); err != nil {
				return nil, report, fmt.Errorf("encoding metadata: %w", err)
			}
		}
	}

	out, fields, original, err := rewriteInjectedDose(out, fraction)
	if err != nil {
		return nil, report, err
	}
	report.XMLFields = fields
	if !report.FreeTextFound && fields > 0 {
		report.Original = original
		report.Retained = original * fraction
	}

	report.NewLength = len(out)
	return out, report, nil
}

// rewriteFreeText replaces the value of the first dose line of the free text. Lines end in \n,
// optionally preceded by \r, which is kept.
func rewriteFreeText(text []byte, fraction float64, opts RewriteOptions) ([]byte, float64, bool, error) {
	start := 0
	for start < len(text) {
		end := bytes.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}
		line := string(text[start:end])

		if strings.HasPrefix(line, doseLabel) {
			newLine, original, ok, err := rewriteDoseLine(line, fraction, opts)
			if err != nil {
				return nil, 0, false, err
			}
			if ok {
				var buf bytes.Buffer
				buf.Write(text[:start])
				buf.WriteString(newLine)
				buf.Write(text[end:])
				return buf.Bytes(), original, true, nil
			}
		}
		start = end + 1
	}
	return text, 0, false, nil
}

func rewriteDoseLine(line string, fraction float64, opts RewriteOptions) (string, float64, bool, error) {
	idx := strings.Index(line, textDelimiter)
	if idx < 0 {
		return "", 0, false, nil
	}
	valueStart := idx + len(textDelimiter)
	valueEnd := len(line)
	if cr := strings.IndexByte(line[valueStart:], '\r'); cr >= 0 {
		valueEnd = valueStart + cr
	}

	raw := line[valueStart:valueEnd]
	numeral := strings.TrimSpace(raw)
	original, err := strconv.ParseFloat(numeral, 64)
	if err != nil {
		return "", 0, false, &Error{
			Code:     CodeFormatMismatch,
			Op:       "parse free-text dose",
			Expected: "a number",
			Found:    numeral,
			Err:      err,
		}
	}

	retained := original * fraction
	var rendered string
	if opts.AllowWidthChange {
		rendered = fmt.Sprintf("%.3e", retained)
	} else {
		rendered = renderLike(numeral, retained)
		if len(rendered) != len(numeral) {
			return "", 0, false, newError(CodeDigitWidthMismatch, "rewrite free-text dose", numeral, rendered)
		}
	}

	newRaw := strings.Replace(raw, numeral, rendered, 1)
	return line[:valueStart] + newRaw + line[valueEnd:], original, true, nil
}

// renderLike formats v in the notation of numeral: scientific with the same mantissa precision,
// or fixed point with the same number of decimals.
func renderLike(numeral string, v float64) string {
	if e := strings.IndexAny(numeral, "eE"); e >= 0 {
		mantissa := numeral[:e]
		prec := 0
		if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
			prec = len(mantissa) - dot - 1
		}
		s := strconv.FormatFloat(v, 'e', prec, 64)
		if numeral[e] == 'E' {
			s = strings.ToUpper(s)
		}
		return s
	}

	decimals := 0
	if dot := strings.IndexByte(numeral, '.'); dot >= 0 {
		decimals = len(numeral) - dot - 1
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// rewriteInjectedDose rewrites every <InjectedDose>I.F</InjectedDose> element with the same
// number of integer and fractional digits. It returns the number of elements and the first
// original value.
func rewriteInjectedDose(blob []byte, fraction float64) ([]byte, int, float64, error) {
	matches := injectedDosePattern.FindAllSubmatchIndex(blob, -1)
	if len(matches) == 0 {
		return blob, 0, 0, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(blob))
	last := 0
	var first float64
	for i, m := range matches {
		numeral := string(blob[m[2]:m[3]])
		original, rendered, err := scaleFixedWidth(numeral, fraction)
		if err != nil {
			return nil, 0, 0, err
		}
		if i == 0 {
			first = original
		}
		buf.Write(blob[last:m[2]])
		buf.WriteString(rendered)
		last = m[3]
	}
	buf.Write(blob[last:])
	return buf.Bytes(), len(matches), first, nil
}

// scaleFixedWidth renders numeral×fraction with the digits before the point zero padded to the
// original count and the original number of fractional digits.
func scaleFixedWidth(numeral string, fraction float64) (float64, string, error) {
	intPart, fracPart, ok := strings.Cut(numeral, ".")
	if !ok || !isDigits(intPart) || !isDigits(fracPart) {
		return 0, "", newError(CodeFormatMismatch, "parse injected dose", "digits.digits", numeral)
	}
	original, err := strconv.ParseFloat(numeral, 64)
	if err != nil {
		return 0, "", &Error{Code: CodeFormatMismatch, Op: "parse injected dose", Found: numeral, Err: err}
	}

	rendered := strconv.FormatFloat(original*fraction, 'f', len(fracPart), 64)
	newInt, newFrac, _ := strings.Cut(rendered, ".")
	if pad := len(intPart) - len(newInt); pad > 0 {
		newInt = strings.Repeat("0", pad) + newInt
	}
	if len(fracPart) > 0 {
		rendered = newInt + "." + newFrac
	} else {
		rendered = newInt + "."
	}

	if len(rendered) != len(numeral) {
		return 0, "", newError(CodeDigitWidthMismatch, "rewrite injected dose", numeral, rendered)
	}
	return original, rendered, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
