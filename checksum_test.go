package sampledata

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

func md5Of(data []byte) string {
	s := md5.Sum(data)
	return "md5:" + hex.EncodeToString(s[:])
}

func sha256Of(data []byte) string {
	s := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(s[:])
}

func TestParseChecksum(t *testing.T) {
	data := []byte("hello world")
	sha1Sum := sha1.Sum(data)
	sha512Sum := sha512.Sum512(data)
	blakeSum := blake3.Sum256(data)
	sha256Hex := strings.TrimPrefix(sha256Of(data), "sha256:")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"md5", md5Of(data), md5Of(data)},
		{"sha1", "sha1:" + hex.EncodeToString(sha1Sum[:]), "sha1:" + hex.EncodeToString(sha1Sum[:])},
		{"sha256", sha256Of(data), sha256Of(data)},
		{"sha512", "sha512:" + hex.EncodeToString(sha512Sum[:]), "sha512:" + hex.EncodeToString(sha512Sum[:])},
		{"blake3", "blake3:" + hex.EncodeToString(blakeSum[:]), "blake3:" + hex.EncodeToString(blakeSum[:])},
		{"bare hex is sha256", sha256Hex, "sha256:" + sha256Hex},
		{"uppercase normalized", strings.ToUpper(md5Of(data)), md5Of(data)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := parseChecksum(tt.input)
			if err != nil {
				t.Fatalf("parseChecksum(%q) error = %v", tt.input, err)
			}
			if sum.String() != tt.want {
				t.Errorf("String() = %q, want %q", sum.String(), tt.want)
			}

			h := sum.newHash()
			h.Write(data)
			if !sum.matches(h) {
				t.Error("matches() = false for the hashed data")
			}
		})
	}
}

func TestParseChecksumInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown algorithm", "crc32:0a1b2c3d"},
		{"md5 too short", "md5:426325d006fe04276ea01df9d83ad5"},
		{"md5 too long", "md5:426325d006fe04276ea01df9d83ad51000"},
		{"not hex", "md5:zz6325d006fe04276ea01df9d83ad510"},
		{"bare hex wrong length", "426325d006fe04276ea01df9d83ad510"},
		{"missing digest", "md5:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseChecksum(tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("parseChecksum(%q) error = %v, want ErrValidation", tt.input, err)
			}
		})
	}
}

func TestVerifyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	data := []byte("hello world")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Run("matching checksum returns nil", func(t *testing.T) {
		sum, _ := parseChecksum(md5Of(data))
		if err := verifyFile(path, sum); err != nil {
			t.Errorf("verifyFile() error = %v, want nil", err)
		}
	})

	t.Run("mismatching checksum returns ErrHashMismatch", func(t *testing.T) {
		sum, _ := parseChecksum(md5Of([]byte("other")))
		if err := verifyFile(path, sum); !errors.Is(err, ErrHashMismatch) {
			t.Errorf("verifyFile() error = %v, want ErrHashMismatch", err)
		}
	})

	t.Run("missing file returns ErrStorage", func(t *testing.T) {
		sum, _ := parseChecksum(md5Of(data))
		err := verifyFile(filepath.Join(dir, "missing"), sum)
		if !errors.Is(err, ErrStorage) {
			t.Errorf("verifyFile() error = %v, want ErrStorage", err)
		}
	})
}
