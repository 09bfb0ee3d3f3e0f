package preprocessing

import (
	"math"
	"sync"
	"testing"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// newDataset はテスト用のデータセットを作る。nil は欠損値。
func newDataset(t *testing.T, columns []string, rows ...[]any) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns...)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	for _, r := range rows {
		values := make([]dataset.Value, len(r))
		for j, v := range r {
			values[j] = dataset.Of(v)
		}
		if err := ds.AppendRow(values); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return ds
}

// captureWarnings は errors.Warn で発行された警告を集める
func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var (
		mu       sync.Mutex
		warnings []error
	)
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		out := make([]error, len(warnings))
		copy(out, warnings)
		return out
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
