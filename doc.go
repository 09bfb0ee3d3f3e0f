// Package tabprep turns raw tabular records into numeric feature matrices
// with a transformation that is learned once and replayed exactly.
//
// A feature spec assigns each column a role: numeric columns are
// standardized, categorical columns are one-hot encoded, and passthrough
// columns are copied as numbers. Fitting produces a FittedState that can be
// saved as JSON, stored in a revisioned registry, and applied to new data.
//
// # Quick Start
//
//	spec := preprocessing.FeatureSpec{
//	    Numeric:     []string{"age"},
//	    Categorical: []string{"country"},
//	}
//	state, X, err := preprocessing.FitTransform(spec, ds, preprocessing.WithExclude("churned"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(X.Columns) // [age country_UK country_US]
//
//	if err := preprocessing.SaveFile(state, "fitted_state.json"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Packages
//
//   - dataset: Raw tables read from CSV, XLSX or SQLite, plus cleaning helpers
//   - preprocessing: Column roles, StandardScaler, OneHotEncoder, ColumnTransformer, persistence
//   - store: Revisioned registry of fitted states on bbolt
//   - report: Histograms of transformed columns
//   - runner: Config-driven fit and transform runs
//   - config: YAML, .env and environment configuration
//   - core/model: Estimator state and transformer plumbing
//   - core/parallel: Parallel processing utilities
//   - pkg/errors, pkg/log: Error types and structured logging
//
// The tabprep command wraps runner:
//
//	tabprep fit -config tabprep.yaml
//	tabprep transform -config tabprep.yaml
//	tabprep inspect -state out/fitted_state.json
package tabprep
