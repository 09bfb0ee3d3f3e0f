package preprocessing

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func fittedForPersistence(t *testing.T) *FittedState {
	t.Helper()
	ds := newDataset(t, []string{"age", "income", "country", "const", "note"},
		[]any{31, 52000.25, "JP", 1, 0.1},
		[]any{45, 71000.5, "US", 1, 0.2},
		[]any{27, nil, "JP", 1, nil},
		[]any{39, 64000.125, "DE", 1, 0.4},
	)
	captureWarnings(t)
	state, err := Fit(FeatureSpec{
		Numeric:     []string{"age", "income", "const"},
		Categorical: []string{"country"},
		Passthrough: []string{"note"},
	}, ds)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return state
}

func TestPersistence_RoundTrip(t *testing.T) {
	state := fittedForPersistence(t)

	var buf bytes.Buffer
	if err := Save(state, &buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !state.Equal(loaded) {
		t.Fatalf("loaded state differs:\n%v\n%v", state, loaded)
	}

	// 未知カテゴリを含むデータで同じ出力になること
	ds := newDataset(t, []string{"age", "income", "country", "const", "note"},
		[]any{50, 80000, "FR", 2, 1.5},
		[]any{nil, 60000, "JP", 1, nil},
	)
	want, err := state.Transform(ds)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got, err := loaded.Transform(ds)
	if err != nil {
		t.Fatalf("Transform (loaded): %v", err)
	}
	if !sameWithNaN(got.Data, want.Data) {
		t.Errorf("outputs differ:\n%v\n%v", mat.Formatted(got.Data), mat.Formatted(want.Data))
	}
}

func TestPersistence_FileRoundTrip(t *testing.T) {
	state := fittedForPersistence(t)
	path := filepath.Join(t.TempDir(), "state.json")

	if err := SaveFile(state, path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !state.Equal(loaded) {
		t.Error("file round trip changed the state")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"format": "tabprep/fitted-state"`) {
		t.Errorf("document is not self-describing:\n%s", data)
	}
}

func TestPersistence_Corrupt(t *testing.T) {
	state := fittedForPersistence(t)
	raw, err := Marshal(state)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"wrong format", func(doc map[string]any) { doc["format"] = "other" }},
		{"future version", func(doc map[string]any) { doc["version"] = 2 }},
		{"missing version", func(doc map[string]any) { delete(doc, "version") }},
		{"missing roles", func(doc map[string]any) { delete(doc, "roles") }},
		{"missing n_samples", func(doc map[string]any) { delete(doc, "n_samples") }},
		{"missing output columns", func(doc map[string]any) { delete(doc, "output_columns") }},
		{"missing mean", func(doc map[string]any) {
			delete(doc["numeric"].([]any)[0].(map[string]any), "mean")
		}},
		{"negative std", func(doc map[string]any) {
			doc["numeric"].([]any)[1].(map[string]any)["std"] = -1.0
		}},
		{"numeric params dropped", func(doc map[string]any) {
			doc["numeric"] = doc["numeric"].([]any)[:1]
		}},
		{"params for another column", func(doc map[string]any) {
			doc["numeric"].([]any)[0].(map[string]any)["column"] = "income"
		}},
		{"empty vocabulary", func(doc map[string]any) {
			doc["categorical"].([]any)[0].(map[string]any)["categories"] = []any{}
		}},
		{"unsorted vocabulary", func(doc map[string]any) {
			doc["categorical"].([]any)[0].(map[string]any)["categories"] = []any{"US", "JP"}
		}},
		{"duplicate category", func(doc map[string]any) {
			doc["categorical"].([]any)[0].(map[string]any)["categories"] = []any{"DE", "DE", "JP"}
		}},
		{"role overlap", func(doc map[string]any) {
			roles := doc["roles"].(map[string]any)
			roles["passthrough"] = []any{"note", "age"}
		}},
		{"unknown field", func(doc map[string]any) { doc["scaler"] = "minmax" }},
		{"output columns disagree", func(doc map[string]any) {
			cols := doc["output_columns"].([]any)
			cols[0], cols[1] = cols[1], cols[0]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			tt.mutate(doc)
			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			_, err = Unmarshal(data)
			if !errors.IsCorruptState(err) {
				t.Errorf("expected CorruptState, got %v", err)
			}
		})
	}

	t.Run("trailing data", func(t *testing.T) {
		for _, tail := range []string{"{garbage", string(raw)} {
			if _, err := Load(strings.NewReader(string(raw) + tail)); !errors.IsCorruptState(err) {
				t.Errorf("tail %.10q: expected CorruptState, got %v", tail, err)
			}
		}
	})

	t.Run("trailing whitespace", func(t *testing.T) {
		if _, err := Load(strings.NewReader(string(raw) + "\n\n")); err != nil {
			t.Errorf("trailing newlines should be accepted: %v", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		if _, err := Unmarshal([]byte("{not json")); !errors.IsCorruptState(err) {
			t.Errorf("expected CorruptState, got %v", err)
		}
	})
}

func TestPersistence_SaveNil(t *testing.T) {
	if err := Save(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error saving a nil state")
	}
}

func sameWithNaN(a, b *mat.Dense) bool {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return false
	}
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			x, y := a.At(i, j), b.At(i, j)
			if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
				return false
			}
		}
	}
	return true
}
