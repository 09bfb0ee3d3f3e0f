package preprocessing

import (
	"bytes"
	"encoding/json"
	"io"
	"math"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

const (
	// StateFormat は保存形式の識別子
	StateFormat = "tabprep/fitted-state"
	// StateVersion は現在の保存形式のバージョン
	StateVersion = 1
)

// stateDocument は FittedState の保存形式
//
// Load 時に欠落したフィールドを検出するため、数値はポインタで受ける。
type stateDocument struct {
	Format        string                `json:"format"`
	Version       int                   `json:"version"`
	Roles         *Roles                `json:"roles"`
	Numeric       []numericDocument     `json:"numeric"`
	Categorical   []categoricalDocument `json:"categorical"`
	OutputColumns []string              `json:"output_columns"`
	NSamples      *int                  `json:"n_samples"`
}

type numericDocument struct {
	Column string   `json:"column"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
}

type categoricalDocument struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
}

// Marshal は FittedState を JSON に変換する
func Marshal(state *FittedState) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(state, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal は Marshal の出力から FittedState を復元する
func Unmarshal(data []byte) (*FittedState, error) {
	return Load(bytes.NewReader(data))
}

// Save は FittedState を自己記述的なJSONとして書き出す
//
// 浮動小数点数は最短の往復可能表現で書き出すため、Load で完全に同じ値に戻る。
func Save(state *FittedState, w io.Writer) error {
	if state == nil {
		return errors.NewNotFittedError("FittedState", "Save")
	}

	doc := stateDocument{
		Format:        StateFormat,
		Version:       StateVersion,
		Roles:         &state.roles,
		Numeric:       make([]numericDocument, 0, len(state.roles.Numeric)),
		Categorical:   make([]categoricalDocument, 0, len(state.roles.Categorical)),
		OutputColumns: state.FeatureNamesOut(),
		NSamples:      &state.nSamples,
	}
	for _, p := range state.NumericParams() {
		mean, std := p.Mean, p.Std
		doc.Numeric = append(doc.Numeric, numericDocument{Column: p.Column, Mean: &mean, Std: &std})
	}
	for _, p := range state.CategoricalParams() {
		doc.Categorical = append(doc.Categorical, categoricalDocument{Column: p.Column, Categories: p.Categories})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "failed to encode fitted state")
	}
	return nil
}

// Load は Save で書き出したJSONから FittedState を復元する
//
// 形式・バージョンの不一致、フィールドの欠落・未知のフィールド、後続データ、内部的な矛盾は全て CorruptStateError となる。
// 検証に成功した状態は保存前と同じ変換を行う。
func Load(r io.Reader) (*FittedState, error) {
	var doc stateDocument
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.NewCorruptStateError("document", "not a valid JSON document", err)
	}
	// 連結・途中で切れた成果物を受け入れない
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.NewCorruptStateError("document", "trailing data after state document", err)
	}
	return doc.decode()
}

// SaveFile は FittedState をファイルに原子的に書き出す
func SaveFile(state *FittedState, path string) error {
	return model.WriteFileAtomic(path, func(w io.Writer) error {
		return Save(state, w)
	})
}

// LoadFile はファイルから FittedState を読み込む
func LoadFile(path string) (*FittedState, error) {
	var state *FittedState
	err := model.ReadFile(path, func(r io.Reader) error {
		var err error
		state, err = Load(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (doc *stateDocument) decode() (*FittedState, error) {
	if doc.Format != StateFormat {
		return nil, errors.NewCorruptStateError("format", "unexpected format "+quote(doc.Format), nil)
	}
	if doc.Version != StateVersion {
		return nil, errors.NewCorruptStateError("version", "unsupported version", nil)
	}
	if doc.Roles == nil {
		return nil, errors.NewCorruptStateError("roles", "missing", nil)
	}
	if doc.NSamples == nil || *doc.NSamples < 0 {
		return nil, errors.NewCorruptStateError("n_samples", "missing or negative", nil)
	}

	roles := doc.Roles.clone()
	if roles.Count() == 0 {
		return nil, errors.NewCorruptStateError("roles", "no column has a role", nil)
	}
	if err := roles.validate(roles.Count()); err != nil {
		return nil, errors.NewCorruptStateError("roles", "inconsistent role assignment", err)
	}

	numeric, err := decodeNumeric(roles.Numeric, doc.Numeric)
	if err != nil {
		return nil, err
	}
	categorical, err := decodeCategorical(roles.Categorical, doc.Categorical)
	if err != nil {
		return nil, err
	}

	state, err := newFittedState(roles, numeric, categorical, *doc.NSamples)
	if err != nil {
		return nil, errors.NewCorruptStateError("output_columns", "output columns cannot be derived", err)
	}
	if doc.OutputColumns == nil {
		return nil, errors.NewCorruptStateError("output_columns", "missing", nil)
	}
	if !equalStrings(doc.OutputColumns, state.outputColumns) {
		return nil, errors.NewCorruptStateError("output_columns", "do not match the fitted parameters", nil)
	}
	return state, nil
}

func decodeNumeric(columns []string, docs []numericDocument) ([]NumericParams, error) {
	if len(docs) != len(columns) {
		return nil, errors.NewCorruptStateError("numeric", "parameter count does not match numeric columns", nil)
	}
	params := make([]NumericParams, len(docs))
	for j, d := range docs {
		field := "numeric." + columns[j]
		if d.Column != columns[j] {
			return nil, errors.NewCorruptStateError(field, "parameters belong to column "+quote(d.Column), nil)
		}
		if d.Mean == nil || d.Std == nil {
			return nil, errors.NewCorruptStateError(field, "mean or std is missing", nil)
		}
		if math.IsNaN(*d.Mean) || math.IsInf(*d.Mean, 0) {
			return nil, errors.NewCorruptStateError(field, "mean is not finite", nil)
		}
		if math.IsNaN(*d.Std) || math.IsInf(*d.Std, 0) || *d.Std < 0 {
			return nil, errors.NewCorruptStateError(field, "std must be finite and non-negative", nil)
		}
		params[j] = NumericParams{Column: d.Column, Mean: *d.Mean, Std: *d.Std}
	}
	return params, nil
}

func decodeCategorical(columns []string, docs []categoricalDocument) ([]CategoricalParams, error) {
	if len(docs) != len(columns) {
		return nil, errors.NewCorruptStateError("categorical", "vocabulary count does not match categorical columns", nil)
	}
	params := make([]CategoricalParams, len(docs))
	for j, d := range docs {
		field := "categorical." + columns[j]
		if d.Column != columns[j] {
			return nil, errors.NewCorruptStateError(field, "vocabulary belongs to column "+quote(d.Column), nil)
		}
		if len(d.Categories) == 0 {
			return nil, errors.NewCorruptStateError(field, "vocabulary is empty", nil)
		}
		for k := 1; k < len(d.Categories); k++ {
			if d.Categories[k-1] >= d.Categories[k] {
				return nil, errors.NewCorruptStateError(field, "vocabulary is not strictly sorted", nil)
			}
		}
		params[j] = CategoricalParams{Column: d.Column, Categories: d.Categories}
	}
	return params, nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
