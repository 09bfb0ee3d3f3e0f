package preprocessing

import (
	"reflect"
	"testing"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func TestClassify(t *testing.T) {
	columns := []string{"id", "age", "country", "score", "label"}
	ds := newDataset(t, columns, []any{1, 30, "US", 0.5, 1})

	tests := []struct {
		name    string
		spec    FeatureSpec
		exclude []string
		want    Roles
	}{
		{
			name: "unlisted dropped by default",
			spec: FeatureSpec{Numeric: []string{"age"}, Categorical: []string{"country"}},
			want: Roles{Numeric: []string{"age"}, Categorical: []string{"country"}, Passthrough: []string{}},
		},
		{
			name:    "unlisted passthrough in dataset order after declared",
			spec:    FeatureSpec{Numeric: []string{"age"}, Passthrough: []string{"score"}, OnUnlisted: UnlistedPassthrough},
			exclude: []string{"label"},
			want:    Roles{Numeric: []string{"age"}, Categorical: []string{}, Passthrough: []string{"score", "id", "country"}},
		},
		{
			name: "declared order is kept",
			spec: FeatureSpec{Numeric: []string{"score", "age"}},
			want: Roles{Numeric: []string{"score", "age"}, Categorical: []string{}, Passthrough: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.spec, ds, tt.exclude...)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify_SchemaMismatch(t *testing.T) {
	ds := newDataset(t, []string{"age", "country", "label"}, []any{30, "US", 1})

	tests := []struct {
		name    string
		spec    FeatureSpec
		exclude []string
		column  string
	}{
		{"absent column", FeatureSpec{Numeric: []string{"height"}}, nil, "height"},
		{"two roles", FeatureSpec{Numeric: []string{"age"}, Categorical: []string{"age"}}, nil, "age"},
		{"listed twice", FeatureSpec{Categorical: []string{"country", "country"}}, nil, "country"},
		{"target with role", FeatureSpec{Numeric: []string{"age", "label"}}, []string{"label"}, "label"},
		{"unlisted with error policy", FeatureSpec{Numeric: []string{"age"}, OnUnlisted: UnlistedError}, []string{"label"}, "country"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.spec, ds, tt.exclude...)
			if !errors.IsSchemaMismatch(err) {
				t.Fatalf("expected SchemaMismatch, got %v", err)
			}
			var sm *errors.SchemaMismatchError
			if !errors.As(err, &sm) {
				t.Fatalf("errors.As failed for %v", err)
			}
			if sm.Column != tt.column {
				t.Errorf("column = %q, want %q", sm.Column, tt.column)
			}
			if sm.Columns != ds.Width() {
				t.Errorf("dataset width = %d, want %d", sm.Columns, ds.Width())
			}
		})
	}
}

func TestClassify_NoColumns(t *testing.T) {
	ds := newDataset(t, []string{"label"}, []any{1})
	if _, err := Classify(FeatureSpec{}, ds, "label"); err == nil {
		t.Error("expected error for a spec without columns")
	}
	if _, err := Classify(FeatureSpec{OnUnlisted: "keep"}, ds); err == nil {
		t.Error("expected error for an unknown policy")
	}
}

func TestParseUnlistedPolicy(t *testing.T) {
	for in, want := range map[string]UnlistedPolicy{
		"":            UnlistedDrop,
		"drop":        UnlistedDrop,
		"passthrough": UnlistedPassthrough,
		"error":       UnlistedError,
	} {
		got, err := ParseUnlistedPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseUnlistedPolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
