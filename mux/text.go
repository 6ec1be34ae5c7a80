package mux

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"

	"github.com/deepteams/pnginfo/internal/container"
)

// TextKind identifies which of the three PNG text chunk types carries a
// TextChunk.
type TextKind int

const (
	KindText          TextKind = iota // tEXt, Latin-1
	KindCompressed                    // zTXt, zlib-compressed Latin-1
	KindInternational                 // iTXt, UTF-8, optionally compressed
)

func (k TextKind) String() string {
	switch k {
	case KindText:
		return "tEXt"
	case KindCompressed:
		return "zTXt"
	case KindInternational:
		return "iTXt"
	default:
		return "unknown"
	}
}

// Tag returns the chunk type tag for k.
func (k TextKind) Tag() ChunkID {
	switch k {
	case KindCompressed:
		return TagZTXt
	case KindInternational:
		return TagITXt
	default:
		return TagTEXt
	}
}

// TextChunk is a decoded text chunk.
type TextChunk struct {
	Kind    TextKind
	Keyword string
	Text    string

	// iTXt only.
	Compressed        bool
	Language          string
	TranslatedKeyword string
}

// maxKeywordLen is the PNG limit on keyword length.
const maxKeywordLen = 79

// maxInflatedText bounds the size of a decompressed zTXt/iTXt payload.
const maxInflatedText = 16 << 20

// legacyHeader is the literal prefix recognised in iTXt chunks by the flat
// metadata reader.
const legacyHeader = "Description"

// DecodeTextChunk decodes a tEXt, zTXt or iTXt chunk payload according to
// the PNG specification.
func DecodeTextChunk(id ChunkID, data []byte) (TextChunk, error) {
	switch id {
	case TagTEXt:
		key, rest, ok := bytes.Cut(data, []byte{0})
		if !ok {
			return TextChunk{}, fmt.Errorf("%w: tEXt without separator", ErrInvalidText)
		}
		return TextChunk{Kind: KindText, Keyword: latin1(key), Text: latin1(rest)}, nil

	case TagZTXt:
		key, rest, ok := bytes.Cut(data, []byte{0})
		if !ok || len(rest) < 1 {
			return TextChunk{}, fmt.Errorf("%w: zTXt header", ErrInvalidText)
		}
		if rest[0] != 0 {
			return TextChunk{}, fmt.Errorf("%w: zTXt compression method %d", ErrInvalidText, rest[0])
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return TextChunk{}, err
		}
		return TextChunk{Kind: KindCompressed, Keyword: latin1(key), Text: latin1(text)}, nil

	case TagITXt:
		return decodeITXt(data)
	}
	return TextChunk{}, fmt.Errorf("%w: chunk %s is not a text chunk", ErrInvalidText, container.TagString(id))
}

func decodeITXt(data []byte) (TextChunk, error) {
	key, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 2 {
		return TextChunk{}, fmt.Errorf("%w: iTXt header", ErrInvalidText)
	}
	flag, method := rest[0], rest[1]
	rest = rest[2:]
	lang, rest, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return TextChunk{}, fmt.Errorf("%w: iTXt language tag", ErrInvalidText)
	}
	translated, rest, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return TextChunk{}, fmt.Errorf("%w: iTXt translated keyword", ErrInvalidText)
	}
	tc := TextChunk{
		Kind:              KindInternational,
		Keyword:           latin1(key),
		Compressed:        flag == 1,
		Language:          string(lang),
		TranslatedKeyword: toValidUTF8(translated),
	}
	text := rest
	if tc.Compressed {
		if method != 0 {
			return TextChunk{}, fmt.Errorf("%w: iTXt compression method %d", ErrInvalidText, method)
		}
		var err error
		if text, err = inflate(rest); err != nil {
			return TextChunk{}, err
		}
	}
	tc.Text = toValidUTF8(text)
	return tc, nil
}

// decodeLegacy decodes a text chunk into a single keyword/text pair using
// the rules of the browser metadata reader: tEXt is split at its first NUL
// and must not contain another; for iTXt every NUL byte is dropped, and the
// first 11 bytes are compared against "Description". On a match the rest is
// the value under "Description", otherwise all of it is stored under
// "Unknown".
func decodeLegacy(id ChunkID, data []byte) (key, value string, err error) {
	if id == TagITXt {
		filtered := make([]byte, 0, len(data))
		for _, b := range data {
			if b != 0 {
				filtered = append(filtered, b)
			}
		}
		header := filtered[:min(len(legacyHeader), len(filtered))]
		if decodeUTF8(header) == legacyHeader {
			return legacyHeader, decodeUTF8(filtered[len(legacyHeader):]), nil
		}
		return "Unknown", decodeUTF8(filtered), nil
	}

	key, text, _ := strings.Cut(latin1(data), "\x00")
	if strings.IndexByte(text, 0) >= 0 {
		return "", "", fmt.Errorf("%w: NUL in tEXt content for %q", ErrInvalidText, key)
	}
	return key, text, nil
}

// EncodeTextChunk serializes tc into a chunk payload.
func EncodeTextChunk(tc TextChunk) (ChunkID, []byte, error) {
	if err := validKeyword(tc.Keyword); err != nil {
		return 0, nil, err
	}
	key, err := toLatin1(tc.Keyword)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var buf bytes.Buffer
	buf.Write(key)
	buf.WriteByte(0)

	switch tc.Kind {
	case KindText:
		text, err := toLatin1(tc.Text)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
		}
		if bytes.IndexByte(text, 0) >= 0 {
			return 0, nil, fmt.Errorf("%w: NUL in tEXt content", ErrInvalidText)
		}
		buf.Write(text)

	case KindCompressed:
		text, err := toLatin1(tc.Text)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
		}
		buf.WriteByte(0) // deflate
		if err := deflate(&buf, text); err != nil {
			return 0, nil, err
		}

	case KindInternational:
		if !utf8.ValidString(tc.Text) || !utf8.ValidString(tc.TranslatedKeyword) {
			return 0, nil, fmt.Errorf("%w: iTXt text is not UTF-8", ErrInvalidText)
		}
		if tc.Compressed {
			buf.Write([]byte{1, 0})
		} else {
			buf.Write([]byte{0, 0})
		}
		buf.WriteString(tc.Language)
		buf.WriteByte(0)
		buf.WriteString(tc.TranslatedKeyword)
		buf.WriteByte(0)
		if tc.Compressed {
			if err := deflate(&buf, []byte(tc.Text)); err != nil {
				return 0, nil, err
			}
		} else {
			buf.WriteString(tc.Text)
		}

	default:
		return 0, nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidText, tc.Kind)
	}
	return tc.Kind.Tag(), buf.Bytes(), nil
}

func validKeyword(k string) error {
	if len(k) == 0 || len(k) > maxKeywordLen {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(k))
	}
	if strings.IndexByte(k, 0) >= 0 {
		return fmt.Errorf("%w: contains NUL", ErrInvalidKey)
	}
	return nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedText+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	if len(out) > maxInflatedText {
		return nil, ErrTextTooLarge
	}
	return out, nil
}

func deflate(w io.Writer, data []byte) error {
	zw := zlib.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

func latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 maps every byte, so this is unreachable in practice.
		return string(b)
	}
	return string(s)
}

func toLatin1(s string) ([]byte, error) {
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
}

// decodeUTF8 drops a leading byte order mark, as browser text decoders do.
func decodeUTF8(b []byte) string {
	return toValidUTF8(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf")))
}

func toValidUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
