package compress

import (
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// ParseDataURL decodes an RFC 2397 data URL and returns its bytes and
// media type (type/subtype, parameters dropped). A string without the
// "data:" scheme is treated as bare base64 and has an empty media type.
//
// As in browsers, the ";base64" marker is matched case-insensitively,
// ASCII whitespace inside a base64 payload is ignored and missing padding
// is accepted.
func ParseDataURL(s string) (data []byte, mediaType string, err error) {
	s = strings.TrimSpace(s)
	bare := !hasDataScheme(s)
	if bare {
		s = "data:application/octet-stream;base64," + s
	}

	du, err := dataurl.DecodeString(normalizeDataURL(s))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if bare {
		return du.Data, "", nil
	}
	return du.Data, du.ContentType(), nil
}

// EncodeDataURL returns data as a base64 data URL.
func EncodeDataURL(data []byte, mediaType string) string {
	return dataurl.New(data, mediaType).String()
}

func hasDataScheme(s string) bool {
	return len(s) >= len("data:") && strings.EqualFold(s[:len("data:")], "data:")
}

// normalizeDataURL rewrites the forms browsers accept but the strict
// RFC 2397 grammar does not: a mixed-case scheme or base64 marker,
// whitespace in the payload, and unpadded base64.
func normalizeDataURL(s string) string {
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return s
	}
	meta = strings.TrimSpace(meta)
	base, isBase64 := cutSuffixFold(meta, ";base64")
	if !isBase64 {
		return "data:" + meta + "," + payload
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, payload)
	if n := len(payload) % 4; n != 0 && !strings.HasSuffix(payload, "=") {
		payload += strings.Repeat("=", 4-n)
	}
	return "data:" + strings.TrimSpace(base) + ";base64," + payload
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) || !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}
