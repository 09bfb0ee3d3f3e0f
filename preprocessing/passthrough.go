package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// passthroughBlock は列を変換せずに出力する。学習するパラメータはない。
// 数値文字列は数値に変換し、欠損値はNaNとして出力する。
type passthroughBlock struct {
	columns []string
}

func (p *passthroughBlock) Width() int { return len(p.columns) }

func (p *passthroughBlock) FeatureNamesOut() []string { return copyStrings(p.columns) }

func (p *passthroughBlock) TransformInto(ds *dataset.Dataset, dst *mat.Dense, offset int) error {
	if err := checkColumns(Roles{Passthrough: p.columns}, ds); err != nil {
		return err
	}
	for j, name := range p.columns {
		col, _ := ds.Index(name)
		for i := 0; i < ds.Len(); i++ {
			v := ds.At(i, col)
			if v.IsMissing() {
				dst.Set(i, offset+j, math.NaN())
				continue
			}
			x, ok := v.Float()
			if !ok {
				return errors.NewCellError("Passthrough.Transform", name, i, fmt.Sprintf("value %q is not numeric", v.Key()))
			}
			dst.Set(i, offset+j, x)
		}
	}
	return nil
}
