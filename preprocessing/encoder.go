package preprocessing

import (
	"fmt"
	"sort"

	"github.com/google/btree"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

const (
	// vocabDegree はカテゴリ語彙を集める B-Tree の次数
	vocabDegree = 16
	// maxUnknownSamples は警告に含める未知カテゴリの最大件数
	maxUnknownSamples = 5
)

// CategoricalParams はカテゴリ列1つ分の学習済み語彙
type CategoricalParams struct {
	Column string
	// Categories は辞書順に並んだ重複のないカテゴリ
	Categories []string
}

// OneHotEncoder はカテゴリ列をOne-Hotベクトルに変換する
//
// 学習時に観測した非欠損値をカテゴリとし、辞書順で出力列の位置を決める。
// 値は Value.CategoryKey で比較するため、CSVの "1.0" とSQLの 1 は同じカテゴリ "1" になる。
// 変換時の欠損値・未知カテゴリは全て0のベクトルとなり、UnknownCategoryWarning を発行する。
type OneHotEncoder struct {
	model.BaseEstimator

	// Columns は担当する列名（出力順）
	Columns []string

	// Categories は各列の語彙
	Categories [][]string

	index             []map[string]int
	parallelThreshold int
}

// NewOneHotEncoder は指定した列を担当するOneHotEncoderを作成する
func NewOneHotEncoder(columns []string) *OneHotEncoder {
	return &OneHotEncoder{
		Columns:           copyStrings(columns),
		parallelThreshold: defaultParallelThreshold,
	}
}

// NewFittedOneHotEncoder は保存済みの語彙から学習済みのOneHotEncoderを復元する
func NewFittedOneHotEncoder(params []CategoricalParams) *OneHotEncoder {
	e := &OneHotEncoder{
		Columns:           make([]string, len(params)),
		Categories:        make([][]string, len(params)),
		parallelThreshold: defaultParallelThreshold,
	}
	for j, p := range params {
		e.Columns[j] = p.Column
		e.Categories[j] = copyStrings(p.Categories)
	}
	e.index = buildIndex(e.Categories)
	e.SetFitted()
	return e
}

// Fit は各列のカテゴリ語彙を学習する
//
// 非欠損値が1つもない列はEmptyColumnError。失敗した場合、既存の学習結果は変更されない。
func (e *OneHotEncoder) Fit(ds *dataset.Dataset) error {
	if err := checkColumns(Roles{Categorical: e.Columns}, ds); err != nil {
		return err
	}

	categories := make([][]string, len(e.Columns))
	err := parallel.ForEachWithThreshold(len(e.Columns), e.parallelThreshold, func(j int) error {
		col, _ := ds.Index(e.Columns[j])
		vocab := btree.NewOrderedG[string](vocabDegree)
		for i := 0; i < ds.Len(); i++ {
			v := ds.At(i, col)
			if v.IsMissing() {
				continue
			}
			vocab.ReplaceOrInsert(v.CategoryKey())
		}
		if vocab.Len() == 0 {
			return errors.NewEmptyColumnError(e.Columns[j], string(RoleCategorical), ds.Len())
		}

		cats := make([]string, 0, vocab.Len())
		vocab.Ascend(func(item string) bool {
			cats = append(cats, item)
			return true
		})
		categories[j] = cats
		return nil
	})
	if err != nil {
		return err
	}

	e.Categories = categories
	e.index = buildIndex(categories)
	e.SetFitted()
	return nil
}

// Width は出力列数（全列のカテゴリ数の合計）を返す
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, cats := range e.Categories {
		w += len(cats)
	}
	return w
}

// FeatureNamesOut は "<列名>_<カテゴリ>" 形式の出力列名を返す
func (e *OneHotEncoder) FeatureNamesOut() []string {
	names := make([]string, 0, e.Width())
	for j, c := range e.Columns {
		for _, cat := range e.Categories[j] {
			names = append(names, c+"_"+cat)
		}
	}
	return names
}

// TransformInto は dst の offset 列目からOne-Hotベクトルを書き込む
//
// dst の該当範囲は0で初期化されている必要がある。
func (e *OneHotEncoder) TransformInto(ds *dataset.Dataset, dst *mat.Dense, offset int) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if err := checkColumns(Roles{Categorical: e.Columns}, ds); err != nil {
		return err
	}

	base := offset
	for j, name := range e.Columns {
		col, _ := ds.Index(name)
		unknown := 0
		samples := make(map[string]bool)
		for i := 0; i < ds.Len(); i++ {
			v := ds.At(i, col)
			if k, ok := e.index[j][v.CategoryKey()]; ok && !v.IsMissing() {
				dst.Set(i, base+k, 1)
				continue
			}
			unknown++
			if len(samples) < maxUnknownSamples {
				samples[v.String()] = true
			}
		}
		if unknown > 0 {
			errors.Warn(errors.NewUnknownCategoryWarning(name, unknown, sortedKeys(samples)))
		}
		base += len(e.Categories[j])
	}
	return nil
}

// Transform は学習済みの語彙でデータセットをエンコードする
func (e *OneHotEncoder) Transform(ds *dataset.Dataset) (*mat.Dense, error) {
	return model.TransformDense(e, ds)
}

// FitTransform は学習と変換を続けて行う
func (e *OneHotEncoder) FitTransform(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := e.Fit(ds); err != nil {
		return nil, err
	}
	return e.Transform(ds)
}

// Params は学習済みの語彙を列順に返す
func (e *OneHotEncoder) Params() []CategoricalParams {
	out := make([]CategoricalParams, len(e.Columns))
	for j, c := range e.Columns {
		p := CategoricalParams{Column: c}
		if e.IsFitted() {
			p.Categories = copyStrings(e.Categories[j])
		}
		out[j] = p
	}
	return out
}

// String はエンコーダーの文字列表現を返す
func (e *OneHotEncoder) String() string {
	if !e.IsFitted() {
		return fmt.Sprintf("OneHotEncoder(columns=%v)", e.Columns)
	}
	return fmt.Sprintf("OneHotEncoder(columns=%v, n_output=%d)", e.Columns, e.Width())
}

func buildIndex(categories [][]string) []map[string]int {
	index := make([]map[string]int, len(categories))
	for j, cats := range categories {
		index[j] = make(map[string]int, len(cats))
		for k, c := range cats {
			index[j][c] = k
		}
	}
	return index
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
