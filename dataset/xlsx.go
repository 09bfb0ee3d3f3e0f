package dataset

import (
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ReadXLSX reads a worksheet whose first row is the header. An empty sheet
// name selects the first sheet. Trailing empty cells are read as missing.
func ReadXLSX(path, sheet string, opts ReadOptions) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Wrapf(errors.ErrEmptyData, "%s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "sheet %s has no header row", sheet)
	}

	ds, err := New(rows[0]...)
	if err != nil {
		return nil, err
	}
	missing := opts.missingSet()
	for i, rec := range rows[1:] {
		if len(rec) > ds.Width() {
			return nil, errors.NewCellError("ReadXLSX", sheet, i+2, "row is wider than the header")
		}
		row := make([]Value, ds.Width())
		for j, text := range rec {
			row[j] = cell(text, missing)
		}
		ds.rows = append(ds.rows, row)
	}
	return ds, nil
}
