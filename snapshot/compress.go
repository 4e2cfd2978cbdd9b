package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// Compression names a payload compression scheme. Like the codec, the
// compression name is stored in the snapshot header and selected by name on
// load.
type Compression string

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = "none"
	// CompressionS2 compresses with S2 (Snappy-compatible), the default.
	CompressionS2 Compression = "s2"
	// CompressionLZ4 compresses with the LZ4 frame format.
	CompressionLZ4 Compression = "lz4"
)

func compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionS2:
		return s2.Encode(nil, data), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %q", c)
	}
}

func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionS2:
		return s2.Decode(nil, data)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %q", c)
	}
}
