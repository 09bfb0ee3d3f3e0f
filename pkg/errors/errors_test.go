package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewSchemaMismatchError(t *testing.T) {
	err := NewSchemaMismatchError("Geography", "categorical", "declared column is absent from dataset", 9)

	want := "tabprep: schema mismatch: column 'Geography' (role categorical): declared column is absent from dataset (dataset has 9 columns)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}

	if !IsSchemaMismatch(err) {
		t.Error("IsSchemaMismatch should be true")
	}
	if IsEmptyColumn(err) || IsCorruptState(err) {
		t.Error("other kind predicates should be false")
	}
}

func TestKindPredicatesThroughWrap(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"schema", NewSchemaMismatchError("a", "numeric", "x", 1), IsSchemaMismatch},
		{"empty", NewEmptyColumnError("a", "numeric", 10), IsEmptyColumn},
		{"corrupt", NewCorruptStateError("numeric[0].std", "negative", nil), IsCorruptState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrapf(tt.err, "in %s", "ColumnTransformer.Fit")
			if !tt.check(wrapped) {
				t.Errorf("predicate should see %T through Wrapf", tt.err)
			}
		})
	}
}

func TestNewEmptyColumnError(t *testing.T) {
	err := NewEmptyColumnError("bmi", "numeric", 3)
	want := "tabprep: numeric column 'bmi' has no non-missing values in 3 rows"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var ec *EmptyColumnError
	if !As(err, &ec) {
		t.Fatal("Error should be castable to *EmptyColumnError")
	}
	if ec.Rows != 3 || ec.Role != "numeric" {
		t.Errorf("unexpected fields: %+v", ec)
	}
}

func TestCorruptStateErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := NewCorruptStateError("document", "invalid JSON", cause)

	if !Is(err, cause) {
		t.Error("CorruptStateError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "unexpected EOF") {
		t.Errorf("message should include cause: %s", err.Error())
	}
}

func TestNewCellError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "with cell",
			err:     NewCellError("StandardScaler.Fit", "Age", 4, `cannot parse "abc" as a number`),
			wantMsg: `tabprep: StandardScaler.Fit: column 'Age' row 4: cannot parse "abc" as a number`,
		},
		{
			name:    "without cell",
			err:     NewValueError("Load", "empty document"),
			wantMsg: "tabprep: Load: empty document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", tt.err.Error(), tt.wantMsg)
			}
			var valErr *ValueError
			if !As(tt.err, &valErr) {
				t.Error("Error should be castable to *ValueError")
			}
		})
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewZeroVarianceWarning("HasCrCard", 1))
	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}

	// zerolog関数が設定されている場合はそちらが優先される
	var viaZerolog int
	SetZerologWarnFunc(func(w error) { viaZerolog++ })
	Warn(NewUnknownCategoryWarning("Country", 2, []string{"FR"}))
	SetZerologWarnFunc(nil)

	if viaZerolog != 1 || len(got) != 1 {
		t.Errorf("expected zerolog routing, got zerolog=%d handler=%d", viaZerolog, len(got))
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("transform", "Age", []float64{0, 1, -1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := CheckNumericalStability("transform", "Age", []float64{0, math.NaN()})
	if err == nil {
		t.Fatal("expected instability error")
	}
	if !strings.Contains(err.Error(), "'Age'") {
		t.Errorf("error should name the column: %v", err)
	}
	if SafeDivide(1, 0) != 0 {
		t.Error("SafeDivide by zero should return 0")
	}
}
