package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// DefaultMissingValues are the cell texts read as missing.
var DefaultMissingValues = []string{"", "NA", "NaN", "null"}

// ReadOptions controls how text cells are turned into Values.
type ReadOptions struct {
	// MissingValues lists cell texts treated as missing. Nil means DefaultMissingValues.
	MissingValues []string
	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune
}

func (o ReadOptions) missingSet() map[string]bool {
	vals := o.MissingValues
	if vals == nil {
		vals = DefaultMissingValues
	}
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

func cell(text string, missing map[string]bool) Value {
	if missing[text] {
		return Missing()
	}
	return String(text)
}

// ReadCSV reads a CSV document with a header row. Non-missing cells are kept
// as strings; numeric parsing is decided later by the column's role.
func ReadCSV(r io.Reader, opts ReadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	ds, err := New(header...)
	if err != nil {
		return nil, err
	}

	missing := opts.missingSet()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", ds.Len()+1)
		}
		row := make([]Value, len(rec))
		for j, text := range rec {
			row[j] = cell(text, missing)
		}
		ds.rows = append(ds.rows, row)
	}
	return ds, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opts ReadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// WriteCSV writes the dataset with a header row. Numbers are written in their
// shortest exact form and missing cells as empty fields.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	rec := make([]string, len(d.columns))
	for _, r := range d.rows {
		for j, v := range r {
			rec[j] = v.Key()
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return cw.Error()
}
