package preprocessing

import (
	"fmt"
	"time"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
)

// defaultParallelThreshold を超える列数の学習は列ごとに並列化する
const defaultParallelThreshold = 8

// ColumnTransformer は列の役割に従って StandardScaler、OneHotEncoder、passthrough を
// まとめて学習・適用する
//
// 出力列の順序は numeric、categorical、passthrough の順で、各グループ内は宣言順。
// カテゴリ列は語彙の辞書順に展開される。
type ColumnTransformer struct {
	state  *model.StateManager
	logger log.Logger

	spec              FeatureSpec
	exclude           []string
	parallelThreshold int

	fitted *FittedState
}

// Option は ColumnTransformer の設定を変更する
type Option func(*ColumnTransformer)

// WithExclude は役割の割り当てから除外する列（目的変数など）を指定する
func WithExclude(columns ...string) Option {
	return func(ct *ColumnTransformer) {
		ct.exclude = append(ct.exclude, columns...)
	}
}

// WithParallelThreshold は列ごとの並列学習を始める列数を指定する
func WithParallelThreshold(n int) Option {
	return func(ct *ColumnTransformer) {
		ct.parallelThreshold = n
	}
}

// WithLogger はロガーを指定する
func WithLogger(l log.Logger) Option {
	return func(ct *ColumnTransformer) {
		ct.logger = l
	}
}

// NewColumnTransformer は新しい ColumnTransformer を作成する
//
// 使用例:
//
//	ct := preprocessing.NewColumnTransformer(preprocessing.FeatureSpec{
//	    Numeric:     []string{"age"},
//	    Categorical: []string{"country"},
//	}, preprocessing.WithExclude("label"))
//	state, X, err := ct.FitTransform(ds)
func NewColumnTransformer(spec FeatureSpec, opts ...Option) *ColumnTransformer {
	ct := &ColumnTransformer{
		state:             model.NewStateManager(),
		spec:              spec.clone(),
		parallelThreshold: defaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(ct)
	}
	if ct.logger == nil {
		ct.logger = log.GetLoggerWithName("ColumnTransformer")
	}
	return ct
}

// String は ColumnTransformer の文字列表現を返す
func (ct *ColumnTransformer) String() string {
	if !ct.state.IsFitted() {
		return fmt.Sprintf("ColumnTransformer(numeric=%v, categorical=%v, passthrough=%v)",
			ct.spec.Numeric, ct.spec.Categorical, ct.spec.Passthrough)
	}
	nFeatures, nSamples := ct.state.GetDimensions()
	return fmt.Sprintf("ColumnTransformer(n_features_out=%d, n_samples_fit=%d)", nFeatures, nSamples)
}

// Spec は設定された FeatureSpec を返す
func (ct *ColumnTransformer) Spec() FeatureSpec { return ct.spec.clone() }

// Fit はデータセットから全ての変換パラメータを学習し、FittedState を返す
//
// 失敗した場合、以前の学習結果はそのまま残る。
func (ct *ColumnTransformer) Fit(ds *dataset.Dataset) (*FittedState, error) {
	start := time.Now()
	logger := ct.logger.With(log.OperationKey, log.OperationFit, log.PhaseKey, log.PhasePreprocessing)

	roles, err := Classify(ct.spec, ds, ct.exclude...)
	if err != nil {
		logger.Error("column classification failed", err)
		return nil, err
	}
	logger.Debug("columns classified",
		log.InputColumnsKey, ds.Width(),
		"numeric", len(roles.Numeric),
		"categorical", len(roles.Categorical),
		"passthrough", len(roles.Passthrough),
	)

	scaler := NewStandardScaler(roles.Numeric)
	scaler.parallelThreshold = ct.parallelThreshold
	if err := scaler.Fit(ds); err != nil {
		logger.Error("numeric fit failed", err)
		return nil, err
	}

	encoder := NewOneHotEncoder(roles.Categorical)
	encoder.parallelThreshold = ct.parallelThreshold
	if err := encoder.Fit(ds); err != nil {
		logger.Error("categorical fit failed", err)
		return nil, err
	}
	for _, p := range encoder.Params() {
		logger.Debug("vocabulary fitted", log.ColumnKey, p.Column, log.CategoriesKey, len(p.Categories))
	}

	fitted, err := newFittedState(roles, scaler.Params(), encoder.Params(), ds.Len())
	if err != nil {
		logger.Error("output layout failed", err)
		return nil, err
	}

	ct.fitted = fitted
	ct.state.MarkFitted(fitted.Width(), ds.Len())
	logger.Info("fit completed",
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, fitted.Width(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return fitted, nil
}

// Transform は直近の学習結果でデータセットを変換する
func (ct *ColumnTransformer) Transform(ds *dataset.Dataset) (*OutputMatrix, error) {
	if err := ct.state.RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := ct.fitted.Transform(ds)
	if err != nil {
		ct.logger.Error("transform failed", err, log.OperationKey, log.OperationTransform)
		return nil, err
	}
	ct.logger.Debug("transform completed",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, out.Rows(),
		log.FeaturesKey, out.Cols(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// FitTransform は学習と変換を続けて行う。結果は Fit の後に Transform を呼んだ場合と一致する。
func (ct *ColumnTransformer) FitTransform(ds *dataset.Dataset) (*FittedState, *OutputMatrix, error) {
	fitted, err := ct.Fit(ds)
	if err != nil {
		return nil, nil, err
	}
	out, err := ct.Transform(ds)
	if err != nil {
		return nil, nil, err
	}
	return fitted, out, nil
}

// State は直近の学習結果を返す
func (ct *ColumnTransformer) State() (*FittedState, error) {
	if err := ct.state.RequireFitted("ColumnTransformer", "State"); err != nil {
		return nil, err
	}
	return ct.fitted, nil
}

// Fit は FeatureSpec に従ってデータセットを学習する
func Fit(spec FeatureSpec, ds *dataset.Dataset, opts ...Option) (*FittedState, error) {
	return NewColumnTransformer(spec, opts...).Fit(ds)
}

// FitTransform は FeatureSpec に従ってデータセットを学習し、同じデータを変換する
func FitTransform(spec FeatureSpec, ds *dataset.Dataset, opts ...Option) (*FittedState, *OutputMatrix, error) {
	return NewColumnTransformer(spec, opts...).FitTransform(ds)
}

// Transform は学習済みの状態でデータセットを変換する
func Transform(state *FittedState, ds *dataset.Dataset) (*OutputMatrix, error) {
	if state == nil {
		return nil, errors.NewNotFittedError("FittedState", "Transform")
	}
	return state.Transform(ds)
}
