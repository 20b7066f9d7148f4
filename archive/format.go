package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/hash"
)

const (
	magic           = "GSAR"
	formatVersion   = 1
	fileHeaderSize  = 24
	blockHeaderSize = 12
)

type fileHeader struct {
	compression Compression
	segmentSize uint32
	headerSize  uint32
	segments    uint32
}

func (h fileHeader) encode() []byte {
	b := make([]byte, fileHeaderSize)
	copy(b, magic)
	binary.LittleEndian.PutUint16(b[4:], formatVersion)
	b[6] = byte(h.compression)
	binary.LittleEndian.PutUint32(b[8:], h.segmentSize)
	binary.LittleEndian.PutUint32(b[12:], h.headerSize)
	binary.LittleEndian.PutUint32(b[16:], h.segments)
	binary.LittleEndian.PutUint32(b[20:], hash.CRC32C(b[:20]))
	return b
}

func decodeFileHeader(b []byte) (fileHeader, error) {
	if string(b[:4]) != magic {
		return fileHeader{}, fmt.Errorf("%w: bad magic %q", geostore.ErrCorrupted, b[:4])
	}
	if sum := binary.LittleEndian.Uint32(b[20:]); sum != hash.CRC32C(b[:20]) {
		return fileHeader{}, fmt.Errorf("%w: file header checksum mismatch", geostore.ErrCorrupted)
	}
	if v := binary.LittleEndian.Uint16(b[4:]); v != formatVersion {
		return fileHeader{}, fmt.Errorf("%w: unsupported archive version %d", geostore.ErrCorrupted, v)
	}
	h := fileHeader{
		compression: Compression(b[6]),
		segmentSize: binary.LittleEndian.Uint32(b[8:]),
		headerSize:  binary.LittleEndian.Uint32(b[12:]),
		segments:    binary.LittleEndian.Uint32(b[16:]),
	}
	if !h.compression.valid() {
		return fileHeader{}, fmt.Errorf("%w: unknown codec %d", geostore.ErrCorrupted, b[6])
	}
	return h, nil
}

// encodeBlock frames data, compressed when that pays off.
func encodeBlock(data []byte, c Compression) ([]byte, error) {
	packed, err := compress(data, c)
	if err != nil {
		return nil, err
	}
	payload := data
	if packed != nil {
		payload = packed
	}
	b := make([]byte, blockHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(b[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(b[4:], uint32(len(packed)))
	binary.LittleEndian.PutUint32(b[8:], hash.CRC32C(data))
	copy(b[blockHeaderSize:], payload)
	return b, nil
}

// pendingBlock is a block read from the stream but not yet decoded.
type pendingBlock struct {
	index  int
	dst    []byte
	packed []byte // nil when the payload was read into dst directly
	sum    uint32
}

// readBlock reads the block for dst. Raw payloads land in dst directly.
func readBlock(r io.Reader, index int, dst []byte) (pendingBlock, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return pendingBlock{}, truncated(err, index)
	}
	size := binary.LittleEndian.Uint32(hdr[0:])
	packedSize := binary.LittleEndian.Uint32(hdr[4:])
	p := pendingBlock{index: index, dst: dst, sum: binary.LittleEndian.Uint32(hdr[8:])}

	if int64(size) != int64(len(dst)) {
		return p, fmt.Errorf("%w: block %d holds %d bytes, want %d", geostore.ErrCorrupted, index, size, len(dst))
	}
	if packedSize == 0 {
		if _, err := io.ReadFull(r, dst); err != nil {
			return p, truncated(err, index)
		}
		return p, nil
	}
	if packedSize >= size {
		return p, fmt.Errorf("%w: block %d compressed size %d exceeds %d", geostore.ErrCorrupted, index, packedSize, size)
	}
	p.packed = make([]byte, packedSize)
	if _, err := io.ReadFull(r, p.packed); err != nil {
		return p, truncated(err, index)
	}
	return p, nil
}

func (p pendingBlock) decode(c Compression) error {
	if p.packed != nil {
		if err := decompress(p.dst, p.packed, c); err != nil {
			return fmt.Errorf("block %d: %w", p.index, err)
		}
	}
	if hash.CRC32C(p.dst) != p.sum {
		return fmt.Errorf("%w: block %d checksum mismatch", geostore.ErrCorrupted, p.index)
	}
	return nil
}

func truncated(err error, index int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: archive truncated in block %d", geostore.ErrCorrupted, index)
	}
	return err
}
