package compress

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     []byte
		wantType string
	}{
		{"base64", "data:image/png;base64,AAEC", []byte{0, 1, 2}, "image/png"},
		{"no padding", "data:image/webp;base64,AAECAw", []byte{0, 1, 2, 3}, "image/webp"},
		{"bare base64", "AAEC", []byte{0, 1, 2}, ""},
		{"uppercase marker", "data:image/png;BASE64,AAEC", []byte{0, 1, 2}, "image/png"},
		{"mixed case scheme", "DATA:image/png;Base64,AAEC", []byte{0, 1, 2}, "image/png"},
		{"spaces in payload", "data:image/png;base64,AA EC", []byte{0, 1, 2}, "image/png"},
		{"wrapped payload", "data:image/png;base64,AA\r\nEC\tAw==", []byte{0, 1, 2, 3}, "image/png"},
		{"params dropped", "data:image/png;name=a.png;base64,AAEC", []byte{0, 1, 2}, "image/png"},
		{"bare unpadded", "AAECAw", []byte{0, 1, 2, 3}, ""},
		{"percent", "data:text/plain,a%20b", []byte("a b"), "text/plain"},
		{"whitespace", "  data:image/png;base64,AAEC\n", []byte{0, 1, 2}, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mt, err := ParseDataURL(tt.in)
			if err != nil {
				t.Fatalf("ParseDataURL(%q): %v", tt.in, err)
			}
			if !bytes.Equal(got, tt.want) || mt != tt.wantType {
				t.Errorf("got %v %q, want %v %q", got, mt, tt.want, tt.wantType)
			}
		})
	}
}

func TestParseDataURL_Invalid(t *testing.T) {
	for _, in := range []string{"data:image/png;base64", "data:image/png;base64,@@", "%%%", "data:image/png;base64,AA=C"} {
		if _, _, err := ParseDataURL(in); !errors.Is(err, ErrInvalidDataURL) {
			t.Errorf("ParseDataURL(%q): got %v, want ErrInvalidDataURL", in, err)
		}
	}
}

func TestEncodeDataURL_RoundTrip(t *testing.T) {
	data := []byte("\x89PNG\r\n\x1a\n")
	s := EncodeDataURL(data, "image/png")
	if s != "data:image/png;base64,iVBORw0KGgo=" {
		t.Fatalf("EncodeDataURL = %q", s)
	}
	got, mt, err := ParseDataURL(s)
	if err != nil || mt != "image/png" || !bytes.Equal(got, data) {
		t.Fatalf("round trip: %v %q %v", got, mt, err)
	}
}
