package redis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitetree/engine/internal/common/configtypes"
)

func TestCompressRoundtrip(t *testing.T) {
	payload := []byte(strings.Repeat("the same sitemap index entry over and over ", 64))

	algorithms := []string{
		configtypes.CompressionNone,
		configtypes.CompressionSnappy,
		configtypes.CompressionLZ4,
	}

	for _, algorithm := range algorithms {
		t.Run(algorithm, func(t *testing.T) {
			stored, err := compress(payload, algorithm)
			require.NoError(t, err)

			restored, err := decompress(stored)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, restored))
		})
	}
}

func TestCompressShrinksRepetitivePayload(t *testing.T) {
	payload := []byte(strings.Repeat("abcdefgh", 256))

	for _, algorithm := range []string{configtypes.CompressionSnappy, configtypes.CompressionLZ4} {
		stored, err := compress(payload, algorithm)
		require.NoError(t, err)
		assert.Less(t, len(stored), len(payload), algorithm)
	}
}

func TestCompressSkipsSmallPayloads(t *testing.T) {
	payload := []byte("tiny")

	stored, err := compress(payload, configtypes.CompressionLZ4)
	require.NoError(t, err)

	assert.Equal(t, codecNone, stored[0])
	assert.Equal(t, payload, stored[1:])
}

func TestCompressRejectsUnknownAlgorithm(t *testing.T) {
	payload := []byte(strings.Repeat("x", compressThreshold))

	_, err := compress(payload, "zstd")
	assert.Error(t, err)
}

func TestDecompressRejectsBadInput(t *testing.T) {
	_, err := decompress(nil)
	assert.Error(t, err)

	_, err = decompress([]byte{'?', 1, 2, 3})
	assert.Error(t, err)

	// LZ4 payloads carry a 4-byte length header.
	_, err = decompress([]byte{codecLZ4, 1})
	assert.Error(t, err)
}
