package dataset

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// OpenSQLite opens a SQLite database file with the pure-Go modernc driver.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	return db, nil
}

// ReadSQL runs query and collects the result set. NULL becomes missing,
// numeric columns become numbers and text becomes strings. Timestamps are
// formatted as RFC3339 text with a DataConversionWarning per column.
func ReadSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*Dataset, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query dataset")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read result columns")
	}
	if len(cols) == 0 {
		return nil, errors.NewValueError("ReadSQL", "query returned no columns")
	}
	ds, err := New(cols...)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	timeCols := make([]bool, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scan row %d", ds.Len())
		}
		row := make([]Value, len(cols))
		for j, v := range raw {
			if t, ok := v.(time.Time); ok {
				row[j] = String(t.Format(time.RFC3339))
				timeCols[j] = true
				continue
			}
			row[j] = Of(v)
		}
		ds.rows = append(ds.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	for j, c := range timeCols {
		if c {
			errors.Warn(errors.NewDataConversionWarning("time.Time", "string", "column "+cols[j]+" formatted as RFC3339"))
		}
	}
	return ds, nil
}
