package redis

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/sitetree/engine/internal/common/configtypes"
)

// Stored blobs are prefixed with one byte naming the codec, so the reader
// does not depend on the writer's configuration.
const (
	codecNone   = byte('N')
	codecSnappy = byte('S')
	codecLZ4    = byte('L')
)

// compressThreshold is the payload size below which compression is skipped.
// Small index blobs and metrics records don't gain enough to pay for the CPU.
const compressThreshold = 512

func compress(payload []byte, algorithm string) ([]byte, error) {
	if len(payload) < compressThreshold || algorithm == configtypes.CompressionNone {
		return append([]byte{codecNone}, payload...), nil
	}

	switch algorithm {
	case configtypes.CompressionSnappy:
		encoded := snappy.Encode(nil, payload)
		return append([]byte{codecSnappy}, encoded...), nil

	case configtypes.CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		var c lz4.Compressor
		n, err := c.CompressBlock(payload, buf)
		if err != nil {
			return nil, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if n == 0 || n >= len(payload) {
			// Incompressible payload, store it as-is.
			return append([]byte{codecNone}, payload...), nil
		}
		// LZ4 block decoding needs the original length up front.
		header := []byte{
			codecLZ4,
			byte(len(payload)),
			byte(len(payload) >> 8),
			byte(len(payload) >> 16),
			byte(len(payload) >> 24),
		}
		return append(header, buf[:n]...), nil

	default:
		return nil, fmt.Errorf("unknown compression algorithm: %s", algorithm)
	}
}

func decompress(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("empty stored payload")
	}

	switch stored[0] {
	case codecNone:
		return stored[1:], nil

	case codecSnappy:
		decoded, err := snappy.Decode(nil, stored[1:])
		if err != nil {
			return nil, fmt.Errorf("snappy decompression failed: %w", err)
		}
		return decoded, nil

	case codecLZ4:
		if len(stored) < 5 {
			return nil, fmt.Errorf("truncated lz4 payload")
		}
		size := int(stored[1]) | int(stored[2])<<8 | int(stored[3])<<16 | int(stored[4])<<24
		decoded := make([]byte, size)
		n, err := lz4.UncompressBlock(stored[5:], decoded)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return decoded[:n], nil

	default:
		return nil, fmt.Errorf("unknown codec byte: %q", stored[0])
	}
}
