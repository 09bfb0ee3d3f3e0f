package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// FittedState は学習済みの前処理パイプライン全体の状態
//
// 確定した役割割り当て、数値列の平均と標準偏差、カテゴリ列の語彙、出力列名を持つ。
// 学習後は変更されず、複数のゴルーチンから同時に Transform を呼び出してよい。
type FittedState struct {
	roles         Roles
	scaler        *StandardScaler
	encoder       *OneHotEncoder
	passthrough   *passthroughBlock
	outputColumns []string
	nSamples      int
}

// newFittedState は学習済みの各ブロックから FittedState を組み立てる
func newFittedState(roles Roles, numeric []NumericParams, categorical []CategoricalParams, nSamples int) (*FittedState, error) {
	s := &FittedState{
		roles:       roles.clone(),
		scaler:      NewFittedStandardScaler(numeric),
		encoder:     NewFittedOneHotEncoder(categorical),
		passthrough: &passthroughBlock{columns: copyStrings(roles.Passthrough)},
		nSamples:    nSamples,
	}

	names := make([]string, 0, s.Width())
	seen := make(map[string]bool)
	for _, b := range s.blocks() {
		for _, name := range b.FeatureNamesOut() {
			if seen[name] {
				return nil, errors.NewSchemaMismatchError(name, "output", "output column name is produced twice", roles.Count())
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	s.outputColumns = names
	return s, nil
}

// blocks は出力順（numeric, categorical, passthrough）に並んだ変換ブロックを返す
func (s *FittedState) blocks() []model.Transformer {
	return []model.Transformer{s.scaler, s.encoder, s.passthrough}
}

// Roles は確定した役割割り当てを返す
func (s *FittedState) Roles() Roles { return s.roles.clone() }

// NumericParams は数値列の学習済みパラメータを返す
func (s *FittedState) NumericParams() []NumericParams { return s.scaler.Params() }

// CategoricalParams はカテゴリ列の学習済み語彙を返す
func (s *FittedState) CategoricalParams() []CategoricalParams { return s.encoder.Params() }

// Categories は指定したカテゴリ列の語彙を返す
func (s *FittedState) Categories(column string) ([]string, bool) {
	for j, c := range s.encoder.Columns {
		if c == column {
			return copyStrings(s.encoder.Categories[j]), true
		}
	}
	return nil, false
}

// FeatureNamesOut は出力列名を出力順に返す
func (s *FittedState) FeatureNamesOut() []string { return copyStrings(s.outputColumns) }

// Width は出力列数を返す
func (s *FittedState) Width() int {
	return s.scaler.Width() + s.encoder.Width() + s.passthrough.Width()
}

// NSamples は学習に使った行数を返す
func (s *FittedState) NSamples() int { return s.nSamples }

// Scaler は数値列のStandardScalerを返す。InverseTransform に使う。
func (s *FittedState) Scaler() *StandardScaler { return s.scaler }

// Transform は学習済みの状態でデータセットを変換する
//
// 出力の列数と列順は学習済み状態だけで決まる。学習時の列がデータセットに無い場合は
// SchemaMismatch。学習時に無かった余分な列は無視する。
func (s *FittedState) Transform(ds *dataset.Dataset) (*OutputMatrix, error) {
	if err := checkColumns(s.roles, ds); err != nil {
		return nil, err
	}

	out := &OutputMatrix{Data: &mat.Dense{}, Columns: s.FeatureNamesOut(), rows: ds.Len()}
	if ds.Len() == 0 || s.Width() == 0 {
		return out, nil
	}

	dst := mat.NewDense(ds.Len(), s.Width(), nil)
	offset := 0
	for _, b := range s.blocks() {
		if err := b.TransformInto(ds, dst, offset); err != nil {
			return nil, err
		}
		offset += b.Width()
	}

	// passthrough列は欠損をNaNで表すため、検査は数値列とカテゴリ列に限る
	checked := make([]int, s.scaler.Width()+s.encoder.Width())
	for j := range checked {
		checked[j] = j
	}
	if err := errors.CheckMatrixColumns("Transform", dst, ds.Len(), checked, out.Columns); err != nil {
		return nil, err
	}

	out.Data = dst
	return out, nil
}

// Equal は2つの学習済み状態が同じ変換を表すかを返す
func (s *FittedState) Equal(o *FittedState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.nSamples != o.nSamples ||
		!equalStrings(s.roles.Numeric, o.roles.Numeric) ||
		!equalStrings(s.roles.Categorical, o.roles.Categorical) ||
		!equalStrings(s.roles.Passthrough, o.roles.Passthrough) ||
		!equalStrings(s.outputColumns, o.outputColumns) {
		return false
	}

	a, b := s.NumericParams(), o.NumericParams()
	for j := range a {
		if a[j] != b[j] {
			return false
		}
	}
	ca, cb := s.CategoricalParams(), o.CategoricalParams()
	for j := range ca {
		if ca[j].Column != cb[j].Column || !equalStrings(ca[j].Categories, cb[j].Categories) {
			return false
		}
	}
	return true
}

// String は学習済み状態の文字列表現を返す
func (s *FittedState) String() string {
	return fmt.Sprintf("FittedState(numeric=%d, categorical=%d, passthrough=%d, n_output=%d, n_samples=%d)",
		len(s.roles.Numeric), len(s.roles.Categorical), len(s.roles.Passthrough), s.Width(), s.nSamples)
}

// OutputMatrix は変換結果の数値行列と出力列名
//
// 行数または列数が0の場合、Data は空の行列となる。
type OutputMatrix struct {
	Data    *mat.Dense
	Columns []string
	rows    int
}

// Rows は行数を返す
func (m *OutputMatrix) Rows() int { return m.rows }

// Cols は列数を返す
func (m *OutputMatrix) Cols() int { return len(m.Columns) }

// At は (i, j) の値を返す
func (m *OutputMatrix) At(i, j int) float64 { return m.Data.At(i, j) }

// Row は i 行目のコピーを返す
func (m *OutputMatrix) Row(i int) []float64 {
	row := make([]float64, m.Cols())
	if m.Cols() > 0 {
		mat.Row(row, i, m.Data)
	}
	return row
}

// Column は列名で指定した列のコピーを返す
func (m *OutputMatrix) Column(name string) ([]float64, error) {
	for j, c := range m.Columns {
		if c == name {
			col := make([]float64, m.rows)
			if m.rows > 0 {
				mat.Col(col, j, m.Data)
			}
			return col, nil
		}
	}
	return nil, errors.NewValidationError("column", "no such output column", name)
}

// Dataset は出力をデータセットに変換する。NaN は欠損値となる。
func (m *OutputMatrix) Dataset() (*dataset.Dataset, error) {
	ds, err := dataset.New(m.Columns...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.rows; i++ {
		row := make([]dataset.Value, m.Cols())
		for j := range row {
			row[j] = dataset.Number(m.Data.At(i, j))
		}
		if err := ds.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
