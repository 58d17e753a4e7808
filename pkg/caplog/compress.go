package caplog

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks a capture file as a zstd stream of CBOR events.
const CompressedSuffix = ".zst"

// IsCompressed reports whether path names a compressed capture.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Appending to an existing compressed capture starts a new zstd frame.
// The decoder reads concatenated frames as one stream.
func newCompressor(w io.Writer) (*zstd.Encoder, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
}

func newDecompressor(r io.Reader) (*zstd.Decoder, error) {
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}
