package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBudgetExceeded is returned by Reserve when the memory budget is spent.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Config sets the limits of a Controller. Zero values mean unlimited, except
// Workers, which defaults to 1.
type Config struct {
	// MemoryLimit caps the bytes held by off-heap segments and cached blob
	// blocks together.
	MemoryLimit int64
	// Workers is the number of blocks an archive compresses or decompresses
	// at once.
	Workers int
	// IORate caps archive and blob stream throughput in bytes per second.
	IORate int64
}

// Controller shares one memory budget, one worker count and one IO rate
// between regions, caches and archives. A nil *Controller imposes no limits.
type Controller struct {
	cfg      Config
	budget   *semaphore.Weighted
	reserved atomic.Int64
	io       *rate.Limiter
}

// New returns a Controller enforcing cfg.
func New(cfg Config) *Controller {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	c := &Controller{cfg: cfg}
	if cfg.MemoryLimit > 0 {
		c.budget = semaphore.NewWeighted(cfg.MemoryLimit)
	}
	if cfg.IORate > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IORate), int(min(cfg.IORate, 1<<30)))
	}
	return c
}

// Reserve takes n bytes from the memory budget without waiting.
func (c *Controller) Reserve(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(n) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d reserved",
			ErrBudgetExceeded, n, c.reserved.Load(), c.cfg.MemoryLimit)
	}
	c.reserved.Add(n)
	return nil
}

// Release returns n bytes to the memory budget.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.budget != nil {
		c.budget.Release(n)
	}
	c.reserved.Add(-n)
}

// Reserved returns the bytes currently taken from the budget.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Limit returns the memory budget, 0 when unlimited.
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimit
}

// Workers returns the configured worker count, 1 for a nil Controller.
func (c *Controller) Workers() int {
	if c == nil {
		return 1
	}
	return c.cfg.Workers
}

// WaitIO blocks until n bytes may pass the IO rate. Requests larger than the
// limiter's burst wait in burst-sized steps.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return ctx.Err()
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Writer returns w throttled by the IO rate.
func (c *Controller) Writer(ctx context.Context, w io.Writer) io.Writer {
	return &throttledWriter{ctx: ctx, w: w, c: c}
}

// Reader returns r throttled by the IO rate. Bytes are charged after they
// are read, so the first read never waits.
func (c *Controller) Reader(ctx context.Context, r io.Reader) io.Reader {
	return &throttledReader{ctx: ctx, r: r, c: c}
}

type throttledWriter struct {
	ctx context.Context
	w   io.Writer
	c   *Controller
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if err := t.c.WaitIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.w.Write(p)
}

type throttledReader struct {
	ctx context.Context
	r   io.Reader
	c   *Controller
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.c.WaitIO(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
