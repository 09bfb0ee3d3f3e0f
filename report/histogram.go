// Package report renders diagnostic plots of transformed feature matrices.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// DefaultBins is used when bins <= 0.
const DefaultBins = 20

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Histograms writes one PNG histogram per output column into dir and returns
// the written paths in column order. An empty columns list means every output
// column. Missing (NaN) cells are left out; columns without any finite value
// are skipped.
func Histograms(out *preprocessing.OutputMatrix, columns []string, dir string, bins int) ([]string, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(columns) == 0 {
		columns = out.Columns
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}

	logger := log.GetLoggerWithName("report")
	paths := make([]string, 0, len(columns))
	for i, name := range columns {
		values, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		finite := make(plotter.Values, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
		if len(finite) == 0 {
			logger.Warn("histogram skipped, no finite values", log.ColumnKey, name)
			continue
		}

		p := plot.New()
		p.Title.Text = name
		p.X.Label.Text = "value"
		p.Y.Label.Text = "count"

		h, err := plotter.NewHist(finite, bins)
		if err != nil {
			return nil, errors.Wrapf(err, "histogram for %s", name)
		}
		p.Add(h)

		path := filepath.Join(dir, fmt.Sprintf("%03d_%s.png", i, unsafeFileChars.ReplaceAllString(name, "_")))
		if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
			return nil, errors.Wrapf(err, "save histogram %s", path)
		}
		paths = append(paths, path)
	}

	logger.Info("histograms written", log.PathKey, dir, "report.files", len(paths))
	return paths, nil
}
