// Package parallel runs independent per-column work across CPU cores.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ForEach calls fn(i) for every i in [0, items) using at most NumCPU goroutines.
// Each call must write only to slot i of its output, so results do not depend on
// scheduling order. The first error returned by any call is returned; panics are
// converted to errors.
func ForEach(items int, fn func(i int) error) error {
	if items == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	var g errgroup.Group
	g.SetLimit(numWorkers)
	for i := 0; i < items; i++ {
		i := i
		g.Go(func() error {
			return errors.SafeExecute("parallel.ForEach", func() error {
				return fn(i)
			})
		})
	}
	return g.Wait()
}

// ForEachWithThreshold runs sequentially when items <= threshold and in
// parallel otherwise. In the sequential path the error of the lowest index wins.
func ForEachWithThreshold(items, threshold int, fn func(i int) error) error {
	if items <= threshold {
		for i := 0; i < items; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	return ForEach(items, fn)
}
