package mrc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress wraps br with a decompressor if the stream starts with a known
// magic number. The returned close function releases decoder resources.
func decompress(br *bufio.Reader) (io.Reader, func(), error) {
	magic, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("mrc: gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil

	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("mrc: zstd: %w", err)
		}
		return zr, zr.Close, nil

	default:
		return br, func() {}, nil
	}
}
