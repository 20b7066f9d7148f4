package collection

import (
	"errors"

	"github.com/hupe1980/geostore/memory"
)

// newRegions creates n regions from f. On failure the regions created so far
// are closed.
func newRegions(f memory.Factory, n int) ([]memory.Memory, error) {
	mems := make([]memory.Memory, 0, n)
	for range n {
		m, err := f()
		if err != nil {
			return nil, errors.Join(err, closeRegions(mems))
		}
		mems = append(mems, m)
	}
	return mems, nil
}

// scratchRegions is newRegions for structures that do not persist. A factory
// may hand out a region that still holds data from an earlier run, so each
// region is cleared before use.
func scratchRegions(f memory.Factory, n int) ([]memory.Memory, error) {
	mems, err := newRegions(f, n)
	if err != nil {
		return nil, err
	}
	for _, m := range mems {
		if m.Segments() == 0 {
			continue
		}
		if err := m.Clear(); err != nil {
			return nil, errors.Join(err, closeRegions(mems))
		}
	}
	return mems, nil
}

func closeRegions(mems []memory.Memory) error {
	var errs []error
	for _, m := range mems {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
