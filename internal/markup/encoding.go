package markup

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultCharset is used whenever the source encoding cannot be determined
const DefaultCharset = "utf-8"

// minDetectorConfidence is the chardet confidence (0-100) required to trust a guess
const minDetectorConfidence = 50

// ErrEncodingDetection marks a decode that fell back to DefaultCharset
var ErrEncodingDetection = errors.New("source encoding could not be determined")

// Decoded is the result of converting raw bytes to a UTF-8 string
type Decoded struct {
	Text      string
	Charset   string // canonical name of the encoding used
	Confident bool   // false when the charset is a guess or the fallback
	Err       error  // ErrEncodingDetection on fallback, otherwise nil
}

// Decode converts raw bytes to UTF-8. Resolution order: explicit hint,
// BOM/meta/Content-Type prescan, UTF-8 validity, statistical detection.
// When all of these fail the bytes are read as UTF-8 with invalid
// sequences replaced, and Err is set to ErrEncodingDetection.
func Decode(raw []byte, hint, contentType string) Decoded {
	if hint != "" {
		if enc, err := htmlindex.Get(hint); err == nil {
			if d, ok := decodeWith(raw, enc); ok {
				return d
			}
		}
		slog.Debug("Ignoring unusable encoding hint", "hint", hint)
	}

	valid := utf8.Valid(raw)

	// certain covers BOM and Content-Type; a <meta> prescan is reported as
	// uncertain but is still a declaration unless it is the windows-1252 default
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if certain || (!valid && name != "windows-1252" && name != DefaultCharset) {
		if d, ok := decodeWith(raw, enc); ok {
			return d
		}
		slog.Debug("Declared encoding failed to decode", "charset", name)
	}

	if valid {
		return Decoded{Text: string(raw), Charset: DefaultCharset, Confident: true}
	}

	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(raw); err == nil && result != nil && result.Confidence >= minDetectorConfidence {
		if enc, err := htmlindex.Get(result.Charset); err == nil {
			if d, ok := decodeWith(raw, enc); ok {
				d.Confident = false
				return d
			}
		}
	}

	slog.Warn("Falling back to default encoding", "charset", DefaultCharset, "bytes", len(raw))
	return Decoded{
		Text:    strings.ToValidUTF8(string(raw), "�"),
		Charset: DefaultCharset,
		Err:     ErrEncodingDetection,
	}
}

func decodeWith(raw []byte, enc encoding.Encoding) (Decoded, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return Decoded{}, false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = DefaultCharset
	}
	return Decoded{Text: string(out), Charset: name, Confident: true}, true
}
