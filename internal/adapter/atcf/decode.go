package atcf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic starts every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// maxTrackBytes bounds a decoded track. Real b-deck files are well under 1 MiB.
const maxTrackBytes = 64 << 20

// decode returns the uncompressed b-deck text. Archive files are gzip
// compressed, but some mirrors serve them already decoded, so the stream is
// sniffed instead of trusting the file name.
func decode(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxTrackBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompress track: %w", err)
	}
	if len(out) > maxTrackBytes {
		return nil, fmt.Errorf("decompressed track exceeds %d bytes", maxTrackBytes)
	}
	return out, nil
}
