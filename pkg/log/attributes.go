// Package log defines standard attribute keys for preprocessing operations.
//
// Using these keys keeps fit/transform logs consistent across packages and
// lets log analysis filter by operation, column and data shape.

package log

// Operation context
const (
	// ComponentKey identifies which component is performing the operation.
	// Examples: "ColumnTransformer", "StandardScaler", "runner"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "transform", "fit_transform", "save", "load"
	OperationKey = "ml.operation"

	// PhaseKey indicates the phase of the pipeline lifecycle.
	// Examples: "training", "inference", "preprocessing"
	PhaseKey = "ml.phase"

	// RunIDKey correlates all records of one runner invocation.
	RunIDKey = "run.id"
)

// Data shape
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of output columns.
	FeaturesKey = "data.features"

	// InputColumnsKey indicates the number of input columns.
	InputColumnsKey = "data.input_columns"

	// RemovedRowsKey counts rows removed by cleaning.
	RemovedRowsKey = "data.removed_rows"

	// PathKey records the file a dataset or state was read from or written to.
	PathKey = "data.path"
)

// Column context
const (
	// ColumnKey names the input column a record refers to.
	ColumnKey = "column.name"

	// RoleKey names the role of the column: numeric, categorical or passthrough.
	RoleKey = "column.role"

	// CategoriesKey records the fitted vocabulary size of a categorical column.
	CategoriesKey = "column.categories"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationSave         = "save"
	OperationLoad         = "load"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
