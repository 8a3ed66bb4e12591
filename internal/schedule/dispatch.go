package schedule

import "chir/internal/chir"

// DispatchFuncs runs fn once per eligible function in funcs, weighted by
// block count so larger functions get first pick of a worker. Functions
// with no body (declarations only) are skipped before scheduling.
func DispatchFuncs(workers int, funcs []*chir.Func, fn func(*chir.Func) error) []error {
	pool := NewPool(workers)
	for _, f := range funcs {
		if f.Body == nil {
			continue
		}
		f := f
		weight := len(f.Body.Blocks)
		_ = pool.Submit(Task{Weight: weight, Run: func() error { return fn(f) }})
	}
	return pool.Run()
}

// DispatchDecls runs fn once per item, each weighted equally (declaration
// translation has no block-count analogue; the queue's heap is not
// stable, so the order among equal-weight tasks is not defined) — the
// AST→CHIR translation use site, where
// each task owns a sub-builder merged back into the shared builder only
// after the queue drains. Generic over the declaration type since this
// package sits below any AST representation.
func DispatchDecls[T any](workers int, decls []T, fn func(T) error) []error {
	pool := NewPool(workers)
	for _, d := range decls {
		d := d
		_ = pool.Submit(Task{Weight: 0, Run: func() error { return fn(d) }})
	}
	return pool.Run()
}
