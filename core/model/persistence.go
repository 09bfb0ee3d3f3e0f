package model

import (
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// FileMode は WriteFileAtomic で書き出したファイルのパーミッション
// 推論プロセスなど他のユーザーから読めるようにする
const FileMode os.FileMode = 0o644

// WriteFileAtomic はファイルを原子的に書き込む
//
// 同じディレクトリの一時ファイルに書き込み、fsync後にリネームする。
// 途中で失敗した場合は一時ファイルを削除し、path には何も残さない
// （既存のファイルがあればそのまま残る）。
//
// 使用例:
//
//	err := model.WriteFileAtomic("state.json", func(w io.Writer) error {
//	    return preprocessing.Save(state, w)
//	})
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	// CreateTemp は 0600 で作成するため、リネーム前に権限を揃える
	if err = tmp.Chmod(FileMode); err != nil {
		return errors.Wrap(err, "failed to set file mode")
	}
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to move temp file to %s", path)
	}
	return nil
}

// ReadFile はファイルを開いて read に渡す
//
// 戻り値:
//   - error: ファイルを開けない場合、または read が失敗した場合のエラー
func ReadFile(path string, read func(r io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return read(file)
}
