package model

import (
	"github.com/YuminosukeSato/tabprep/dataset"
	"gonum.org/v1/gonum/mat"
)

// Transformer は学習済みパラメータで列を数値ブロックに変換するインターフェース
//
// 出力幅は学習済み状態だけで決まり、変換するデータの内容には依存しない。
type Transformer interface {
	// Width は出力列数を返す
	Width() int

	// FeatureNamesOut は出力列名を出力順に返す
	FeatureNamesOut() []string

	// TransformInto は dst の offset 列目から Width() 列に変換結果を書き込む
	TransformInto(ds *dataset.Dataset, dst *mat.Dense, offset int) error
}

// TransformDense は Transformer の出力を新しい行列として返す
//
// 行数または出力幅が0の場合は空の行列を返す（gonumは大きさ0の行列を作れないため）。
func TransformDense(t Transformer, ds *dataset.Dataset) (*mat.Dense, error) {
	rows, cols := ds.Len(), t.Width()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}, nil
	}
	dst := mat.NewDense(rows, cols, nil)
	if err := t.TransformInto(ds, dst, 0); err != nil {
		return nil, err
	}
	return dst, nil
}
