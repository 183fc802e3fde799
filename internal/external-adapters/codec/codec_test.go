package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sampleManifest mirrors the tag conventions of the plan manifest
type sampleManifest struct {
	ID        string            `json:"id" yaml:"id"`
	Artifacts []string          `json:"artifacts" yaml:"artifacts"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Count     int               `json:"count" yaml:"count"`
}

func sample() sampleManifest {
	return sampleManifest{
		ID:        "demo-v1.2.0",
		Artifacts: []string{"demo-x86_64-unknown-linux-gnu.tar.xz", "sha256.sum"},
		Labels:    map[string]string{"zeta": "z", "alpha": "a", "mid": "m"},
		Count:     2,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"cbor", FormatCBOR, false},
		{"toml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(format, sample())
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			var decoded sampleManifest
			if err := Decode(format, data, &decoded); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(sample(), decoded); diff != "" {
				t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			first, err := Encode(format, sample())
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			for i := 0; i < 20; i++ {
				again, err := Encode(format, sample())
				if err != nil {
					t.Fatalf("Encode: %v", err)
				}
				if !bytes.Equal(first, again) {
					t.Fatalf("encoding %d differs from the first", i)
				}
			}
		})
	}
}

func TestEncodeUsesJSONNames(t *testing.T) {
	data, err := Encode(FormatJSON, sample())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"artifacts": [`) {
		t.Errorf("json output missing indented artifacts key:\n%s", data)
	}

	data, err = Encode(FormatYAML, sample())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(string(data), "id: demo-v1.2.0\n") {
		t.Errorf("yaml output should start with the id field:\n%s", data)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCBOR, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want, _ := Encode(FormatCBOR, sample())
	if !bytes.Equal(buf.Bytes(), want) {
		t.Error("Write output differs from Encode")
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := Encode("toml", sample()); err == nil {
		t.Error("Encode should reject an unknown format")
	}
	var v sampleManifest
	if err := Decode("toml", nil, &v); err == nil {
		t.Error("Decode should reject an unknown format")
	}
}
