// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("tabprep-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// ZeroVarianceWarningなどの処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すとフォールバックのハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	変換時の警告型
//
// ===========================================================================

// ZeroVarianceWarning は数値列の分散が0だった場合の警告です。
// この列は変換時に常に0を出力します。
type ZeroVarianceWarning struct {
	Column string
	Value  float64
}

func (w *ZeroVarianceWarning) Error() string {
	return fmt.Sprintf("column '%s' has zero variance (constant %g); it will be scaled to 0", w.Column, w.Value)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ZeroVarianceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Float64("value", w.Value).
		Str("type", "ZeroVarianceWarning")
}

// NewZeroVarianceWarning は新しいZeroVarianceWarningを作成します。
func NewZeroVarianceWarning(column string, value float64) *ZeroVarianceWarning {
	return &ZeroVarianceWarning{Column: column, Value: value}
}

// UnknownCategoryWarning は学習時に存在しなかったカテゴリを変換時に検出した場合の警告です。
// 該当する行は全て0のベクトルとして出力されます。
type UnknownCategoryWarning struct {
	Column  string
	Count   int
	Samples []string // 最大5件
}

func (w *UnknownCategoryWarning) Error() string {
	return fmt.Sprintf("column '%s': %d value(s) not seen during fit were encoded as all zeros (e.g. %s)",
		w.Column, w.Count, strings.Join(w.Samples, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UnknownCategoryWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Int("count", w.Count).
		Strs("samples", w.Samples).
		Str("type", "UnknownCategoryWarning")
}

// NewUnknownCategoryWarning は新しいUnknownCategoryWarningを作成します。
func NewUnknownCategoryWarning(column string, count int, samples []string) *UnknownCategoryWarning {
	return &UnknownCategoryWarning{Column: column, Count: count, Samples: samples}
}

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// SchemaMismatchError は宣言された列とデータセットの列が一致しない場合のエラーです。
// 宣言列の欠落、同じ列の複数ロールへの割り当て、未宣言列（on_unlisted=error）で発生します。
type SchemaMismatchError struct {
	Column  string
	Role    string
	Reason  string
	Columns int // データセットの列数
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("tabprep: schema mismatch: column '%s' (role %s): %s (dataset has %d columns)",
		e.Column, e.Role, e.Reason, e.Columns)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("role", e.Role).
		Str("reason", e.Reason).
		Int("dataset_columns", e.Columns).
		Str("type", "SchemaMismatchError")
}

// NewSchemaMismatchError は新しいSchemaMismatchErrorを作成し、スタックトレースを付与します。
func NewSchemaMismatchError(column, role, reason string, columns int) error {
	err := &SchemaMismatchError{Column: column, Role: role, Reason: reason, Columns: columns}
	return errors.WithStack(err)
}

// EmptyColumnError は学習時に列に有効な値が1つもなかった場合のエラーです。
type EmptyColumnError struct {
	Column string
	Role   string
	Rows   int
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("tabprep: %s column '%s' has no non-missing values in %d rows", e.Role, e.Column, e.Rows)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EmptyColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("role", e.Role).
		Int("rows", e.Rows).
		Str("type", "EmptyColumnError")
}

// NewEmptyColumnError は新しいEmptyColumnErrorを作成し、スタックトレースを付与します。
func NewEmptyColumnError(column, role string, rows int) error {
	err := &EmptyColumnError{Column: column, Role: role, Rows: rows}
	return errors.WithStack(err)
}

// CorruptStateError は永続化された学習済み状態を読み込めない場合のエラーです。
// 必須フィールドの欠落や不正な値を検出した場合に発生し、デフォルト値で補完されることはありません。
type CorruptStateError struct {
	Field  string
	Reason string
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tabprep: corrupt fitted state: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("tabprep: corrupt fitted state: %s: %s", e.Field, e.Reason)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CorruptStateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "CorruptStateError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewCorruptStateError は新しいCorruptStateErrorを作成し、スタックトレースを付与します。
func NewCorruptStateError(field, reason string, err error) error {
	return errors.WithStack(&CorruptStateError{Field: field, Reason: reason, Err: err})
}

// NotFittedError は未学習の状態で `Transform` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tabprep: %s: this transformer is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tabprep: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tabprep: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError はセルの値が列のロールに対して不正な場合に発生するエラーです。
// 例えば、数値列に数値として解釈できない文字列が含まれていた場合など。
type ValueError struct {
	Op      string
	Column  string
	Row     int
	Message string
}

func (e *ValueError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("tabprep: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("tabprep: %s: column '%s' row %d: %s", e.Op, e.Column, e.Row, e.Message)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Int("row", e.Row).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NewCellError は特定のセルを指すValueErrorを作成します。
func NewCellError(op, column string, row int, message string) error {
	return errors.WithStack(&ValueError{Op: op, Column: column, Row: row, Message: message})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Infを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Column    string
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	if e.Column != "" {
		return fmt.Sprintf("tabprep: numerical instability detected in %s for column '%s'. Values: [%s]",
			e.Operation, e.Column, valStr)
	}
	return fmt.Sprintf("tabprep: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation, column string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Column: column, Values: values})
}

// ===========================================================================
//
//	エラー種別の判定
//
// ===========================================================================

// IsSchemaMismatch はエラーチェーンにSchemaMismatchErrorが含まれるかを判定します。
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// IsEmptyColumn はエラーチェーンにEmptyColumnErrorが含まれるかを判定します。
func IsEmptyColumn(err error) bool {
	var target *EmptyColumnError
	return errors.As(err, &target)
}

// IsCorruptState はエラーチェーンにCorruptStateErrorが含まれるかを判定します。
func IsCorruptState(err error) bool {
	var target *CorruptStateError
	return errors.As(err, &target)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
