package archive

import (
	"fmt"
	"sync"

	"github.com/hupe1980/geostore"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block codec.
type Compression uint8

const (
	// CompressionNone stores blocks verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, moderate ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, the default).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

// Encoders and decoders are reused across blocks.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// compress returns the encoded block, or nil when the codec saves less than
// 10% and the block should be stored raw.
func compress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone || len(data) == 0 {
		return nil, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		out = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(out) == 0 || len(out) > len(data)/10*9 {
		return nil, nil
	}
	return out, nil
}

// decompress decodes src into dst, which must have the exact uncompressed length.
func decompress(dst, src []byte, c Compression) error {
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4: %w", geostore.ErrCorrupted, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: lz4 block decoded to %d bytes, want %d", geostore.ErrCorrupted, n, len(dst))
		}
		return nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return fmt.Errorf("zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(src, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", geostore.ErrCorrupted, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: zstd block decoded to %d bytes, want %d", geostore.ErrCorrupted, len(out), len(dst))
		}
		copy(dst, out)
		return nil
	default:
		return fmt.Errorf("%w: compressed block with codec %s", geostore.ErrCorrupted, c)
	}
}
