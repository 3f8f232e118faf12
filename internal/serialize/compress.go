// Package serialize compresses Flight action bodies with ZStandard.
package serialize

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultThreshold is the body size in bytes above which payloads are
// compressed.
const DefaultThreshold = 64 << 10

// Compressor is a reusable ZStandard encoder. Safe for concurrent use.
type Compressor struct {
	encoder   *zstd.Encoder
	threshold int
}

// NewCompressor creates a compressor for payloads larger than threshold
// bytes. A threshold <= 0 uses DefaultThreshold.
// Caller must call Close() when done.
func NewCompressor(threshold int) (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Compressor{encoder: encoder, threshold: threshold}, nil
}

// Pack compresses data when it is larger than the threshold and reports
// whether it did.
func (c *Compressor) Pack(data []byte) ([]byte, bool) {
	if len(data) <= c.threshold {
		return data, false
	}
	return c.Compress(data), true
}

// Compress compresses data unconditionally.
func (c *Compressor) Compress(data []byte) []byte {
	if len(data) == 0 {
		return []byte{}
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Close releases encoder resources.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Decompressor is a reusable ZStandard decoder. Safe for concurrent use.
type Decompressor struct {
	decoder *zstd.Decoder
}

// NewDecompressor creates a decompressor refusing outputs larger than
// maxSize bytes (0 means the zstd default limit).
// Caller must call Close() when done.
func NewDecompressor(maxSize uint64) (*Decompressor, error) {
	var opts []zstd.DOption
	if maxSize > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(maxSize))
	}
	decoder, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Decompressor{decoder: decoder}, nil
}

// Decompress decompresses ZStandard data.
func (d *Decompressor) Decompress(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return []byte{}, nil
	}
	out, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// Close releases decoder resources.
func (d *Decompressor) Close() {
	if d.decoder != nil {
		d.decoder.Close()
	}
}
