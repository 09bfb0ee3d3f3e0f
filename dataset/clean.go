package dataset

import (
	"sort"
	"strings"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// DropDuplicates returns a dataset keeping the first occurrence of every
// distinct row, and the number of rows removed.
func (d *Dataset) DropDuplicates() (*Dataset, int) {
	out, _ := New(d.columns...)
	seen := make(map[string]struct{}, len(d.rows))
	var b strings.Builder
	for _, r := range d.rows {
		b.Reset()
		for _, v := range r {
			b.WriteByte(byte('0' + v.kind))
			b.WriteString(v.Key())
			b.WriteByte(0x1f)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.rows = append(out.rows, r)
	}
	return out, len(d.rows) - len(out.rows)
}

// DropMissing returns a dataset without rows that have any missing cell,
// and the number of rows removed.
func (d *Dataset) DropMissing() (*Dataset, int) {
	out, _ := New(d.columns...)
	for _, r := range d.rows {
		complete := true
		for _, v := range r {
			if v.IsMissing() {
				complete = false
				break
			}
		}
		if complete {
			out.rows = append(out.rows, r)
		}
	}
	return out, len(d.rows) - len(out.rows)
}

// MissingCount returns the number of missing cells per column.
func (d *Dataset) MissingCount() map[string]int {
	counts := make(map[string]int, len(d.columns))
	for _, r := range d.rows {
		for j, v := range r {
			if v.IsMissing() {
				counts[d.columns[j]]++
			}
		}
	}
	return counts
}

// FillMedian returns a dataset where missing cells of the named numeric
// columns are replaced by the column median over non-missing values.
func (d *Dataset) FillMedian(cols ...string) (*Dataset, error) {
	out := d.Clone()
	for _, c := range cols {
		j, ok := d.index[c]
		if !ok {
			return nil, errors.NewValidationError("fill_median", "no such column", c)
		}
		nums := make([]float64, 0, len(d.rows))
		for i, r := range d.rows {
			if r[j].IsMissing() {
				continue
			}
			f, ok := r[j].Float()
			if !ok {
				return nil, errors.NewCellError("FillMedian", c, i, "cannot parse "+r[j].Key()+" as a number")
			}
			nums = append(nums, f)
		}
		if len(nums) == 0 {
			return nil, errors.NewEmptyColumnError(c, "numeric", len(d.rows))
		}
		m := median(nums)
		for _, r := range out.rows {
			if r[j].IsMissing() {
				r[j] = Number(m)
			}
		}
	}
	return out, nil
}

func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}
