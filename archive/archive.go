package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/conv"
	"github.com/hupe1980/geostore/memory"
)

// Export writes the header and every allocated segment of m to w and returns
// the number of bytes written. m must not be written concurrently.
func Export(ctx context.Context, m memory.Memory, w io.Writer, optFns ...Option) (written int64, err error) {
	o := resolveOptions(optFns)
	segments := m.Segments()
	defer func() {
		o.logger.LogExport(ctx, o.name, segments, written, err)
	}()

	if !o.compression.valid() {
		return 0, geostore.NewArgumentError("compression", o.compression, "unknown codec")
	}
	h := fileHeader{compression: o.compression}
	if h.segmentSize, err = conv.IntToUint32(m.SegmentSize()); err != nil {
		return 0, err
	}
	if h.headerSize, err = conv.IntToUint32(m.HeaderSize()); err != nil {
		return 0, err
	}
	if h.segments, err = conv.IntToUint32(segments); err != nil {
		return 0, err
	}

	sources := make([][]byte, 0, segments+1)
	hdr, err := m.Header()
	if err != nil {
		return 0, fmt.Errorf("export header: %w", err)
	}
	sources = append(sources, hdr)
	for i := range segments {
		seg, err := m.Segment(i)
		if err != nil {
			return 0, fmt.Errorf("export segment %d: %w", i, err)
		}
		sources = append(sources, seg)
	}

	cw := &countingWriter{w: o.controller.Writer(ctx, w)}
	if _, err := cw.Write(h.encode()); err != nil {
		return cw.n, err
	}

	// Compress a window of blocks in parallel, then write the window in order.
	workers := o.controller.Workers()
	for start := 0; start < len(sources); start += workers {
		window := sources[start:min(start+workers, len(sources))]
		encoded := make([][]byte, len(window))

		g, gctx := errgroup.WithContext(ctx)
		for i, src := range window {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				b, err := encodeBlock(src, o.compression)
				encoded[i] = b
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return cw.n, err
		}
		for _, b := range encoded {
			if _, err := cw.Write(b); err != nil {
				return cw.n, err
			}
		}
	}
	return cw.n, nil
}

// Import replaces the contents of m with the archive read from r. The region
// geometry must match the archive. m is cleared first, so a failed import
// leaves it partially restored.
func Import(ctx context.Context, r io.Reader, m memory.Memory, optFns ...Option) (err error) {
	o := resolveOptions(optFns)
	var h fileHeader
	defer func() {
		o.logger.LogImport(ctx, o.name, int(h.segments), err)
	}()

	rr := o.controller.Reader(ctx, r)
	buf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(rr, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: archive shorter than its file header", geostore.ErrCorrupted)
		}
		return err
	}
	if h, err = decodeFileHeader(buf); err != nil {
		return err
	}
	if int64(h.segmentSize) != int64(m.SegmentSize()) {
		return geostore.NewArgumentError("segment size", m.SegmentSize(), fmt.Sprintf("archive uses %d", h.segmentSize))
	}
	if int64(h.headerSize) != int64(m.HeaderSize()) {
		return geostore.NewArgumentError("header size", m.HeaderSize(), fmt.Sprintf("archive uses %d", h.headerSize))
	}
	if err := m.Clear(); err != nil {
		return fmt.Errorf("clear target: %w", err)
	}

	total := int(h.segments) + 1
	workers := o.controller.Workers()
	for start := 0; start < total; start += workers {
		// Blocks are read sequentially and decoded in parallel.
		g, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < min(start+workers, total); idx++ {
			dst, err := importTarget(m, idx)
			if err != nil {
				_ = g.Wait()
				return err
			}
			p, err := readBlock(rr, idx, dst)
			if err != nil {
				_ = g.Wait()
				return err
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return p.decode(h.compression)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return m.Sync()
}

// importTarget returns the region bytes for block idx: the header for 0 and
// segment idx-1 otherwise.
func importTarget(m memory.Memory, idx int) ([]byte, error) {
	if idx == 0 {
		b, err := m.Header()
		if err != nil {
			return nil, fmt.Errorf("import header: %w", err)
		}
		return b, nil
	}
	b, err := m.Segment(idx - 1)
	if err != nil {
		return nil, fmt.Errorf("import segment %d: %w", idx-1, err)
	}
	return b, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
