// Package resource limits what geostore may consume across all open regions,
// caches and archive streams.
//
// A Controller carries three limits:
//
//   - a memory budget shared by off-heap segments and cached blob blocks
//   - the number of archive blocks compressed or decompressed at once
//   - an IO rate for archive export, import and blob transfers
//
// Pass the same Controller to memory.WithController, cache.NewLRUBlockCache
// and archive.WithController to enforce one budget:
//
//	rc := resource.New(resource.Config{
//	    MemoryLimit: 8 << 30,
//	    Workers:     runtime.GOMAXPROCS(0),
//	    IORate:      200 << 20,
//	})
//	nodes, err := memory.NewOffHeap(memory.WithController(rc))
//
// Reserve never blocks. When the budget is spent it returns an error wrapping
// ErrBudgetExceeded and the caller decides what to do. A nil *Controller is
// valid and imposes no limits.
package resource
