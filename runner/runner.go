// Package runner wires configuration, dataset I/O, cleaning and the
// preprocessing engine into the fit and transform batch jobs.
package runner

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/tabprep/config"
	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
	"github.com/YuminosukeSato/tabprep/report"
	"github.com/YuminosukeSato/tabprep/store"
)

// Result summarizes one run.
type Result struct {
	RunID string

	RowsIn            int
	RowsOut           int
	DuplicatesRemoved int
	MissingRemoved    int

	// Columns are the output feature columns; the target, when present, follows them in the data file.
	Columns []string

	DataPath    string
	StatePath   string
	Revision    uint64
	ReportFiles []string

	State *preprocessing.FittedState
}

// Fit loads and cleans the input, fits the preprocessing state, writes the
// transformed data and persists the state (file, and registry when configured).
func Fit(ctx context.Context, cfg *config.Config) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := log.GetLoggerWithName("runner").With(log.RunIDKey, res.RunID, log.OperationKey, log.OperationFitTransform)
	start := time.Now()

	ds, err := LoadDataset(ctx, cfg.Input)
	if err != nil {
		logger.Error("load failed", err, log.PathKey, cfg.Input.Path)
		return nil, err
	}
	res.RowsIn = ds.Len()
	logger.Info("dataset loaded", log.PathKey, cfg.Input.Path, log.SamplesKey, ds.Len(), log.InputColumnsKey, ds.Width())

	ds, err = clean(ds, cfg.Cleaning, res)
	if err != nil {
		logger.Error("cleaning failed", err)
		return nil, err
	}
	res.RowsOut = ds.Len()
	logger.Info("dataset cleaned",
		log.SamplesKey, ds.Len(),
		log.RemovedRowsKey, res.DuplicatesRemoved+res.MissingRemoved,
	)

	var target []dataset.Value
	if cfg.Target != "" {
		if target, err = ds.Column(cfg.Target); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []preprocessing.Option{
		preprocessing.WithParallelThreshold(cfg.ParallelThreshold),
		preprocessing.WithLogger(logger.With(log.ComponentKey, "ColumnTransformer")),
	}
	if cfg.Target != "" {
		opts = append(opts, preprocessing.WithExclude(cfg.Target))
	}
	state, out, err := preprocessing.FitTransform(cfg.Features, ds, opts...)
	if err != nil {
		return nil, err
	}
	res.State = state
	res.Columns = state.FeatureNamesOut()

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", cfg.Output.Dir)
	}
	if err := writeOutput(cfg.DataPath(), out, cfg.Target, target); err != nil {
		return nil, err
	}
	res.DataPath = cfg.DataPath()

	if err := preprocessing.SaveFile(state, cfg.StatePath()); err != nil {
		logger.Error("state save failed", err, log.PathKey, cfg.StatePath())
		return nil, err
	}
	res.StatePath = cfg.StatePath()
	logger.Info("state saved", log.OperationKey, log.OperationSave, log.PathKey, res.StatePath)

	if cfg.Output.Registry != "" {
		if res.Revision, err = putRegistry(cfg, state); err != nil {
			logger.Error("registry update failed", err, log.PathKey, cfg.Output.Registry)
			return nil, err
		}
	}

	if dir := cfg.ReportDir(); dir != "" {
		if res.ReportFiles, err = report.Histograms(out, nil, dir, cfg.Output.ReportBins); err != nil {
			return nil, err
		}
	}

	logger.Info("fit run completed",
		log.FeaturesKey, len(res.Columns),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Apply transforms the input with a previously fitted state. Only column drops
// are applied as cleaning, so every input row yields one output row.
func Apply(ctx context.Context, cfg *config.Config) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := log.GetLoggerWithName("runner").With(log.RunIDKey, res.RunID, log.OperationKey, log.OperationTransform)
	start := time.Now()

	state, rev, err := LoadState(cfg)
	if err != nil {
		logger.Error("state load failed", err)
		return nil, err
	}
	res.State, res.Revision, res.Columns = state, rev, state.FeatureNamesOut()
	logger.Info("state loaded", log.OperationKey, log.OperationLoad, log.FeaturesKey, state.Width())

	ds, err := LoadDataset(ctx, cfg.Input)
	if err != nil {
		logger.Error("load failed", err, log.PathKey, cfg.Input.Path)
		return nil, err
	}
	res.RowsIn = ds.Len()
	if len(cfg.Cleaning.DropColumns) > 0 {
		if ds, err = ds.Drop(cfg.Cleaning.DropColumns...); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := preprocessing.Transform(state, ds)
	if err != nil {
		logger.Error("transform failed", err)
		return nil, err
	}
	res.RowsOut = out.Rows()

	var target []dataset.Value
	if cfg.Target != "" && ds.Has(cfg.Target) {
		target, _ = ds.Column(cfg.Target)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", cfg.Output.Dir)
	}
	if err := writeOutput(cfg.DataPath(), out, cfg.Target, target); err != nil {
		return nil, err
	}
	res.DataPath = cfg.DataPath()

	logger.Info("transform run completed",
		log.SamplesKey, res.RowsOut,
		log.FeaturesKey, out.Cols(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// LoadDataset reads the configured input.
func LoadDataset(ctx context.Context, in config.InputConfig) (*dataset.Dataset, error) {
	opts := in.ReadOptions()
	format := in.Format
	if format == "" {
		format = config.FormatFromPath(in.Path)
	}

	switch format {
	case "csv":
		return dataset.ReadCSVFile(in.Path, opts)
	case "xlsx":
		return dataset.ReadXLSX(in.Path, in.Sheet, opts)
	case "sqlite":
		db, err := dataset.OpenSQLite(in.Path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return dataset.ReadSQL(ctx, db, in.Query)
	default:
		return nil, errors.NewValidationError("input.format", "must be one of csv, xlsx, sqlite", format)
	}
}

// LoadState loads the fitted state from the registry when one is configured,
// otherwise from the state file. The revision is 0 for file-based states.
func LoadState(cfg *config.Config) (*preprocessing.FittedState, uint64, error) {
	if cfg.Output.Registry == "" {
		state, err := preprocessing.LoadFile(cfg.StatePath())
		return state, 0, err
	}
	reg, err := store.Open(cfg.Output.Registry)
	if err != nil {
		return nil, 0, err
	}
	defer reg.Close()
	return reg.Get(cfg.Output.Name)
}

// clean applies drop_columns, drop_duplicates, fill_median and drop_missing in that order.
func clean(ds *dataset.Dataset, c config.CleaningConfig, res *Result) (*dataset.Dataset, error) {
	var err error
	if len(c.DropColumns) > 0 {
		if ds, err = ds.Drop(c.DropColumns...); err != nil {
			return nil, err
		}
	}
	if c.DropDuplicates {
		ds, res.DuplicatesRemoved = ds.DropDuplicates()
	}
	if len(c.FillMedian) > 0 {
		if ds, err = ds.FillMedian(c.FillMedian...); err != nil {
			return nil, err
		}
	}
	if c.DropMissing {
		ds, res.MissingRemoved = ds.DropMissing()
	}
	return ds, nil
}

func writeOutput(path string, out *preprocessing.OutputMatrix, targetName string, target []dataset.Value) error {
	ds, err := out.Dataset()
	if err != nil {
		return err
	}
	if target != nil {
		if err := ds.AddColumn(targetName, target); err != nil {
			return err
		}
	}
	return model.WriteFileAtomic(path, func(w io.Writer) error {
		return dataset.WriteCSV(w, ds)
	})
}

func putRegistry(cfg *config.Config, state *preprocessing.FittedState) (uint64, error) {
	reg, err := store.Open(cfg.Output.Registry)
	if err != nil {
		return 0, err
	}
	defer reg.Close()
	return reg.Put(cfg.Output.Name, state)
}
