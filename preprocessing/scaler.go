package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// NumericParams は数値列1つ分の学習済みパラメータ
type NumericParams struct {
	Column string
	Mean   float64
	// Std は母集団標準偏差。定数列では厳密に0。
	Std float64
}

// StandardScaler は数値列を平均0、標準偏差1に標準化する
//
// 統計量は欠損値を除いた値から計算する。分散0の列は変換時に常に0を出力する。
type StandardScaler struct {
	model.BaseEstimator

	// Columns は担当する列名（出力順）
	Columns []string

	// Mean は各列の平均値
	Mean []float64

	// Scale は各列の母集団標準偏差
	Scale []float64

	parallelThreshold int
}

// NewStandardScaler は指定した列を担当するStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler([]string{"age", "income"})
//	err := scaler.Fit(ds)
//	X, err := scaler.Transform(ds)
func NewStandardScaler(columns []string) *StandardScaler {
	return &StandardScaler{
		Columns:           copyStrings(columns),
		parallelThreshold: defaultParallelThreshold,
	}
}

// NewFittedStandardScaler は保存済みパラメータから学習済みのStandardScalerを復元する
func NewFittedStandardScaler(params []NumericParams) *StandardScaler {
	s := &StandardScaler{
		Columns:           make([]string, len(params)),
		Mean:              make([]float64, len(params)),
		Scale:             make([]float64, len(params)),
		parallelThreshold: defaultParallelThreshold,
	}
	for j, p := range params {
		s.Columns[j] = p.Column
		s.Mean[j] = p.Mean
		s.Scale[j] = p.Std
	}
	s.SetFitted()
	return s
}

// Fit は各列の平均と標準偏差を計算する
//
// 列の中に数値として解釈できない値があればValueError、
// 非欠損値が1つもなければEmptyColumnError。失敗した場合、既存の学習結果は変更されない。
func (s *StandardScaler) Fit(ds *dataset.Dataset) error {
	if err := checkColumns(Roles{Numeric: s.Columns}, ds); err != nil {
		return err
	}

	n := len(s.Columns)
	mean := make([]float64, n)
	scale := make([]float64, n)
	constant := make([]bool, n)

	err := parallel.ForEachWithThreshold(n, s.parallelThreshold, func(j int) error {
		values, err := numericValues(ds, s.Columns[j], "StandardScaler.Fit")
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return errors.NewEmptyColumnError(s.Columns[j], string(RoleNumeric), ds.Len())
		}
		if err := errors.CheckNumericalStability("StandardScaler.Fit", s.Columns[j], values); err != nil {
			return err
		}
		if isConstant(values) {
			// 浮動小数点誤差で微小な標準偏差が出ないよう、定数列は明示的に0とする
			mean[j], scale[j], constant[j] = values[0], 0, true
			return errors.CheckScalar("StandardScaler.Fit", s.Columns[j], mean[j])
		}
		mean[j], scale[j] = stat.PopMeanStdDev(values, nil)
		if err := errors.CheckScalar("StandardScaler.Fit", s.Columns[j], mean[j]); err != nil {
			return err
		}
		return errors.CheckScalar("StandardScaler.Fit", s.Columns[j], scale[j])
	})
	if err != nil {
		return err
	}

	s.Mean, s.Scale = mean, scale
	s.SetFitted()

	for j, c := range constant {
		if c {
			errors.Warn(errors.NewZeroVarianceWarning(s.Columns[j], mean[j]))
		}
	}
	return nil
}

// Width は出力列数を返す
func (s *StandardScaler) Width() int { return len(s.Columns) }

// FeatureNamesOut は出力列名を返す。数値列は入力列名のまま出力される。
func (s *StandardScaler) FeatureNamesOut() []string { return copyStrings(s.Columns) }

// TransformInto は dst の offset 列目から標準化した値を書き込む
//
// 欠損値は平均で補完した扱いとなり0を出力する。
func (s *StandardScaler) TransformInto(ds *dataset.Dataset, dst *mat.Dense, offset int) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError("StandardScaler", "Transform")
	}
	if err := checkColumns(Roles{Numeric: s.Columns}, ds); err != nil {
		return err
	}

	for j, name := range s.Columns {
		col, _ := ds.Index(name)
		mean, std := s.Mean[j], s.Scale[j]
		for i := 0; i < ds.Len(); i++ {
			v := ds.At(i, col)
			if v.IsMissing() {
				dst.Set(i, offset+j, 0)
				continue
			}
			x, ok := v.Float()
			if !ok {
				return errors.NewCellError("StandardScaler.Transform", name, i, fmt.Sprintf("value %q is not numeric", v.Key()))
			}
			dst.Set(i, offset+j, errors.SafeDivide(x-mean, std))
		}
	}
	return nil
}

// Transform は学習済みの統計量でデータセットを標準化する
func (s *StandardScaler) Transform(ds *dataset.Dataset) (*mat.Dense, error) {
	return model.TransformDense(s, ds)
}

// FitTransform は学習と変換を続けて行う
func (s *StandardScaler) FitTransform(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := s.Fit(ds); err != nil {
		return nil, err
	}
	return s.Transform(ds)
}

// InverseTransform は標準化された値を元のスケールに戻す
//
// 分散0の列は学習時の定数値に戻る。
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != len(s.Columns) {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", len(s.Columns), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// Params は学習済みパラメータを列順に返す
func (s *StandardScaler) Params() []NumericParams {
	out := make([]NumericParams, len(s.Columns))
	for j, c := range s.Columns {
		p := NumericParams{Column: c}
		if s.IsFitted() {
			p.Mean, p.Std = s.Mean[j], s.Scale[j]
		}
		out[j] = p
	}
	return out
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(columns=%v)", s.Columns)
	}
	return fmt.Sprintf("StandardScaler(columns=%v, mean=%v, std=%v)", s.Columns, s.Mean, s.Scale)
}

// numericValues は列の非欠損値を数値として取り出す
func numericValues(ds *dataset.Dataset, column, op string) ([]float64, error) {
	col, _ := ds.Index(column)
	values := make([]float64, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		v := ds.At(i, col)
		if v.IsMissing() {
			continue
		}
		x, ok := v.Float()
		if !ok {
			return nil, errors.NewCellError(op, column, i, fmt.Sprintf("value %q is not numeric", v.Key()))
		}
		values = append(values, x)
	}
	return values, nil
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
